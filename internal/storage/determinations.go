package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/model"
)

// SaveDetermination persists the final annotation for one expense.
func (s *SQLiteStorage) SaveDetermination(ctx context.Context, det *model.Determination) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDetermination(det); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveDeterminationTx(ctx, tx, det); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) saveDeterminationTx(ctx context.Context, tx *sql.Tx, det *model.Determination) error {
	violations, err := json.Marshal(det.Classification.Violations)
	if err != nil {
		return fmt.Errorf("failed to marshal violations: %w", err)
	}
	assignment, err := json.Marshal(det.Assignment)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}
	crossCheck, err := json.Marshal(det.CrossCheck)
	if err != nil {
		return fmt.Errorf("failed to marshal cross-check: %w", err)
	}
	anomalyFlags, err := json.Marshal(det.AnomalyFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal anomaly flags: %w", err)
	}

	// The heuristic consults the dominant source of recent
	// determinations; store it denormalized so the history query
	// stays a plain index lookup.
	primarySource := ""
	best := 0
	for _, alloc := range det.Assignment.Allocations {
		if alloc.Percent > best {
			best = alloc.Percent
			primarySource = alloc.SourceID
		}
	}

	reviewRequired := 0
	if det.Classification.ReviewRequired {
		reviewRequired = 1
	}
	vatRecoverable := 0
	if det.Classification.VATRecoverable {
		vatRecoverable = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO determinations (
			expense_id, category, income_tax_percent, vat_recoverable,
			vat_percent, reason, status, review_required, violations,
			situation_id, assignment, cross_check, anomaly_flags,
			primary_source_id, determined_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		det.ExpenseID, string(det.Classification.Category),
		det.Classification.IncomeTaxPercent, vatRecoverable,
		det.Classification.VATPercent, det.Classification.Reason,
		string(det.Classification.Status), reviewRequired,
		string(violations), det.SituationID, string(assignment),
		string(crossCheck), string(anomalyFlags),
		primarySource, det.DeterminedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save determination for %s: %w", det.ExpenseID, err)
	}
	return nil
}

// GetDetermination fetches the determination for one expense.
func (s *SQLiteStorage) GetDetermination(ctx context.Context, expenseID string) (*model.Determination, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(expenseID, "expenseID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT expense_id, category, income_tax_percent, vat_recoverable,
		       vat_percent, reason, status, review_required, violations,
		       situation_id, assignment, cross_check, anomaly_flags,
		       determined_at
		FROM determinations WHERE expense_id = ?`, expenseID)

	det, err := scanDetermination(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("determination for %s: %w", expenseID, common.ErrNotFound)
	}
	return det, err
}

// GetDeterminationsNeedingReview returns every determination whose
// record requires manual attention. The assignment status is computed
// on read from the stored assignment detail rather than materialized
// into its own column.
func (s *SQLiteStorage) GetDeterminationsNeedingReview(ctx context.Context) ([]model.Determination, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT expense_id, category, income_tax_percent, vat_recoverable,
		       vat_percent, reason, status, review_required, violations,
		       situation_id, assignment, cross_check, anomaly_flags,
		       determined_at
		FROM determinations ORDER BY determined_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query determinations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var needing []model.Determination
	for rows.Next() {
		det, err := scanDetermination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan determination: %w", err)
		}
		if det.Classification.ReviewRequired ||
			det.Assignment.Status == model.AssignmentReviewNeeded {
			needing = append(needing, *det)
		}
	}
	return needing, rows.Err()
}

func scanDetermination(row scannable) (*model.Determination, error) {
	var det model.Determination
	var category, status string
	var vatRecoverable, reviewRequired int
	var reason, violations, situationID, assignment sql.NullString
	var crossCheck, anomalyFlags sql.NullString

	err := row.Scan(&det.ExpenseID, &category,
		&det.Classification.IncomeTaxPercent, &vatRecoverable,
		&det.Classification.VATPercent, &reason, &status,
		&reviewRequired, &violations, &situationID, &assignment,
		&crossCheck, &anomalyFlags, &det.DeterminedAt)
	if err != nil {
		return nil, err
	}

	det.Classification.Category = model.Category(category)
	det.Classification.Status = model.ClassificationStatus(status)
	det.Classification.VATRecoverable = vatRecoverable != 0
	det.Classification.ReviewRequired = reviewRequired != 0
	det.Classification.Reason = reason.String
	det.SituationID = situationID.String

	if violations.Valid && violations.String != "" && violations.String != "null" {
		if err := json.Unmarshal([]byte(violations.String), &det.Classification.Violations); err != nil {
			return nil, fmt.Errorf("violations for %s: %w: %v", det.ExpenseID, common.ErrDatabaseCorrupted, err)
		}
	}
	if assignment.Valid && assignment.String != "" {
		if err := json.Unmarshal([]byte(assignment.String), &det.Assignment); err != nil {
			return nil, fmt.Errorf("assignment for %s: %w: %v", det.ExpenseID, common.ErrDatabaseCorrupted, err)
		}
	}
	if crossCheck.Valid && crossCheck.String != "" && crossCheck.String != "null" {
		if err := json.Unmarshal([]byte(crossCheck.String), &det.CrossCheck); err != nil {
			return nil, fmt.Errorf("cross-check for %s: %w: %v", det.ExpenseID, common.ErrDatabaseCorrupted, err)
		}
	}
	if anomalyFlags.Valid && anomalyFlags.String != "" && anomalyFlags.String != "null" {
		if err := json.Unmarshal([]byte(anomalyFlags.String), &det.AnomalyFlags); err != nil {
			return nil, fmt.Errorf("anomaly flags for %s: %w: %v", det.ExpenseID, common.ErrDatabaseCorrupted, err)
		}
	}
	return &det, nil
}
