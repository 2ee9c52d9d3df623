package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/taxatron/internal/model"
)

// SaveDuplicate records a duplicate link.
func (s *SQLiteStorage) SaveDuplicate(ctx context.Context, dup *model.DuplicateRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if dup == nil {
		return errNilEntity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveDuplicateTx(ctx, tx, dup); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) saveDuplicateTx(ctx context.Context, tx *sql.Tx, dup *model.DuplicateRecord) error {
	autoApplied := 0
	if dup.AutoApplied {
		autoApplied = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO duplicates (expense_id, original_id, confidence, strategy, auto_applied, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		dup.ExpenseID, dup.OriginalID, string(dup.Confidence),
		string(dup.Strategy), autoApplied, dup.DetectedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save duplicate link %s -> %s: %w",
			dup.ExpenseID, dup.OriginalID, err)
	}
	return nil
}

// GetDuplicatesForExpense lists the duplicate links recorded for one
// expense.
func (s *SQLiteStorage) GetDuplicatesForExpense(ctx context.Context, expenseID string) ([]model.DuplicateRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT expense_id, original_id, confidence, strategy, auto_applied, detected_at
		FROM duplicates WHERE expense_id = ? ORDER BY detected_at ASC`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dups []model.DuplicateRecord
	for rows.Next() {
		var dup model.DuplicateRecord
		var confidence, strategy string
		var autoApplied int
		if err := rows.Scan(&dup.ExpenseID, &dup.OriginalID, &confidence,
			&strategy, &autoApplied, &dup.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate: %w", err)
		}
		dup.Confidence = model.DuplicateConfidence(confidence)
		dup.Strategy = model.DuplicateStrategy(strategy)
		dup.AutoApplied = autoApplied != 0
		dups = append(dups, dup)
	}
	return dups, rows.Err()
}
