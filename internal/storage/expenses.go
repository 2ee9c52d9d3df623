package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/service"
)

const expenseColumns = `id, account_id, vendor_name, vendor_domain, invoice_number,
	invoice_date, amount_cents, currency, content_hash, created_at`

// SaveExpense persists one expense record. Saving the same ID twice
// is a no-op; the identity duplicate strategy checks existence before
// the pipeline ever gets here.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, exp *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(exp); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveExpenseTx(ctx, tx, exp); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) saveExpenseTx(ctx context.Context, tx *sql.Tx, exp *model.Expense) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO expenses (
			id, account_id, vendor_name, vendor_domain, invoice_number,
			invoice_date, amount_cents, currency, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.AccountID, exp.VendorName, strings.ToLower(exp.VendorDomain),
		exp.InvoiceNumber, exp.InvoiceDate.UTC(), exp.AmountCents,
		exp.Currency, exp.ContentHash)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", exp.ID, err)
	}
	return nil
}

// GetExpenseByID fetches one expense.
func (s *SQLiteStorage) GetExpenseByID(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	return exp, err
}

// GetExpenses returns expenses matching the filter, newest first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	var args []any
	if filter.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		query += ` AND invoice_date >= ?`
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += ` AND invoice_date < ?`
		args = append(args, filter.EndDate.UTC())
	}
	query += ` ORDER BY invoice_date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// ExpenseExists reports whether the record ID is already persisted.
func (s *SQLiteStorage) ExpenseExists(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM expenses WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check expense %s: %w", id, err)
	}
	return true, nil
}

// FindByInvoiceNumber returns the earliest expense sharing an invoice
// number and vendor domain, excluding the record's own ID.
func (s *SQLiteStorage) FindByInvoiceNumber(ctx context.Context, accountID, invoiceNumber, vendorDomain, excludeID string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE account_id = ? AND invoice_number = ? AND vendor_domain = ? AND id != ?
		ORDER BY created_at ASC LIMIT 1`,
		accountID, invoiceNumber, strings.ToLower(vendorDomain), excludeID)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return exp, err
}

// FindByContentHash returns the earliest expense with an identical
// artifact hash.
func (s *SQLiteStorage) FindByContentHash(ctx context.Context, accountID, hash, excludeID string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if hash == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE account_id = ? AND content_hash = ? AND id != ?
		ORDER BY created_at ASC LIMIT 1`,
		accountID, hash, excludeID)
	exp, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return exp, err
}

// FindFuzzyCandidates returns expenses from the same vendor domain
// with the same amount and an invoice date inside [from, to].
func (s *SQLiteStorage) FindFuzzyCandidates(ctx context.Context, accountID, vendorDomain string, amountCents int64, from, to time.Time, excludeID string) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE account_id = ? AND vendor_domain = ? AND amount_cents = ?
		  AND invoice_date >= ? AND invoice_date <= ? AND id != ?
		ORDER BY invoice_date ASC`,
		accountID, strings.ToLower(vendorDomain), amountCents,
		from.UTC(), to.UTC(), excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fuzzy candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExpenses(rows)
}

// GetVendorHistory aggregates prior invoices from one sender domain:
// count, last category, cumulative amount, and the primary source of
// the most recent N determinations for the allocation heuristic.
func (s *SQLiteStorage) GetVendorHistory(ctx context.Context, accountID, vendorDomain string, recentN int) (*model.VendorHistory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	history := &model.VendorHistory{Domain: strings.ToLower(vendorDomain)}
	if vendorDomain == "" {
		return history, nil
	}
	if recentN <= 0 {
		recentN = 5
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM expenses WHERE account_id = ? AND vendor_domain = ?`,
		accountID, strings.ToLower(vendorDomain)).
		Scan(&history.InvoiceCount, &history.TotalAmountCents)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate vendor history: %w", err)
	}

	if history.InvoiceCount == 0 {
		return history, nil
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT invoice_date FROM expenses
		WHERE account_id = ? AND vendor_domain = ?
		ORDER BY invoice_date DESC LIMIT 1`,
		accountID, strings.ToLower(vendorDomain)).Scan(&history.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to get last vendor invoice date: %w", err)
	}

	var lastCategory sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT d.category FROM determinations d
		JOIN expenses e ON e.id = d.expense_id
		WHERE e.account_id = ? AND e.vendor_domain = ?
		ORDER BY e.invoice_date DESC LIMIT 1`,
		accountID, strings.ToLower(vendorDomain)).Scan(&lastCategory)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last vendor category: %w", err)
	}
	if lastCategory.Valid {
		history.LastCategory = model.Category(lastCategory.String)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.primary_source_id FROM determinations d
		JOIN expenses e ON e.id = d.expense_id
		WHERE e.account_id = ? AND e.vendor_domain = ? AND d.primary_source_id != ''
		ORDER BY e.invoice_date DESC LIMIT ?`,
		accountID, strings.ToLower(vendorDomain), recentN)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent vendor sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return nil, fmt.Errorf("failed to scan source ID: %w", err)
		}
		history.RecentSourceIDs = append(history.RecentSourceIDs, sourceID)
	}
	return history, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExpense(row scannable) (*model.Expense, error) {
	var exp model.Expense
	var vendorName, vendorDomain, invoiceNumber, contentHash sql.NullString
	err := row.Scan(&exp.ID, &exp.AccountID, &vendorName, &vendorDomain,
		&invoiceNumber, &exp.InvoiceDate, &exp.AmountCents, &exp.Currency,
		&contentHash, &exp.CreatedAt)
	if err != nil {
		return nil, err
	}
	exp.VendorName = vendorName.String
	exp.VendorDomain = vendorDomain.String
	exp.InvoiceNumber = invoiceNumber.String
	exp.ContentHash = contentHash.String
	return &exp, nil
}

func scanExpenses(rows *sql.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *exp)
	}
	return expenses, rows.Err()
}
