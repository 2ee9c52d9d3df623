package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS expenses (
					id TEXT PRIMARY KEY,
					account_id TEXT NOT NULL,
					vendor_name TEXT,
					vendor_domain TEXT,
					invoice_number TEXT,
					invoice_date DATETIME NOT NULL,
					amount_cents INTEGER NOT NULL,
					currency TEXT NOT NULL DEFAULT 'EUR',
					content_hash TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_expenses_invoice_number ON expenses(account_id, vendor_domain, invoice_number)`,
				`CREATE INDEX idx_expenses_content_hash ON expenses(account_id, content_hash)`,
				`CREATE INDEX idx_expenses_date ON expenses(invoice_date)`,

				`CREATE TABLE IF NOT EXISTS determinations (
					expense_id TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					income_tax_percent INTEGER NOT NULL,
					vat_recoverable INTEGER NOT NULL,
					vat_percent INTEGER NOT NULL DEFAULT 0,
					reason TEXT,
					status TEXT NOT NULL,
					review_required INTEGER NOT NULL DEFAULT 0,
					violations TEXT,
					situation_id TEXT,
					assignment TEXT,
					primary_source_id TEXT,
					determined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (expense_id) REFERENCES expenses(id)
				)`,
				`CREATE INDEX idx_determinations_category ON determinations(category)`,
				`CREATE INDEX idx_determinations_review ON determinations(review_required)`,

				`CREATE TABLE IF NOT EXISTS duplicates (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					expense_id TEXT NOT NULL,
					original_id TEXT NOT NULL,
					confidence TEXT NOT NULL,
					strategy TEXT NOT NULL,
					auto_applied INTEGER NOT NULL DEFAULT 0,
					detected_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_duplicates_expense ON duplicates(expense_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Track processing runs for interrupted-run detection",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS processing_runs (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					finished_at DATETIME,
					processed INTEGER DEFAULT 0,
					flagged INTEGER DEFAULT 0,
					duplicates INTEGER DEFAULT 0
				)`,
				`CREATE INDEX idx_runs_status ON processing_runs(status)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index for fuzzy duplicate candidate lookups",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(
				`CREATE INDEX IF NOT EXISTS idx_expenses_fuzzy
				 ON expenses(account_id, vendor_domain, amount_cents, invoice_date)`)
			return err
		},
	},
	{
		Version:     4,
		Description: "Persist cross-check verdicts and anomaly flags on determinations",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE determinations ADD COLUMN cross_check TEXT`,
				`ALTER TABLE determinations ADD COLUMN anomaly_flags TEXT`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w",
				migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
