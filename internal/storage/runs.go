package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taxatron/internal/model"
)

// StartRun records a new processing run in "running" state.
func (s *SQLiteStorage) StartRun(ctx context.Context, run *model.ProcessingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return errNilEntity
	}
	if err := validateString(run.ID, "run.ID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_runs (id, status, started_at)
		VALUES (?, ?, ?)`,
		run.ID, string(model.RunStatusRunning), run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun closes a run with its final status and counters.
func (s *SQLiteStorage) FinishRun(ctx context.Context, run *model.ProcessingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return errNilEntity
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE processing_runs
		SET status = ?, finished_at = CURRENT_TIMESTAMP,
		    processed = ?, flagged = ?, duplicates = ?
		WHERE id = ?`,
		string(run.Status), run.Processed, run.Flagged, run.Duplicates, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s was never started", run.ID)
	}
	return nil
}

// FlagInterruptedRuns marks every run still "running" as
// "interrupted". Called at process start: a leftover running state
// means a previous instance died mid-batch, and that fact must
// surface instead of being silently merged.
func (s *SQLiteStorage) FlagInterruptedRuns(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE processing_runs
		SET status = ?, finished_at = CURRENT_TIMESTAMP
		WHERE status = ?`,
		string(model.RunStatusInterrupted), string(model.RunStatusRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to flag interrupted runs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count interrupted runs: %w", err)
	}
	if n > 0 {
		slog.Warn("Flagged interrupted runs from a previous instance", "count", n)
	}
	return int(n), nil
}

// GetRuns lists runs, newest first.
func (s *SQLiteStorage) GetRuns(ctx context.Context, limit int) ([]model.ProcessingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, started_at, finished_at, processed, flagged, duplicates
		FROM processing_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ProcessingRun
	for rows.Next() {
		var run model.ProcessingRun
		var status string
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &status, &run.StartedAt, &finished,
			&run.Processed, &run.Flagged, &run.Duplicates); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = model.RunStatus(status)
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
