// Package engine orchestrates the classification-and-allocation
// pipeline: resolve the situation, enforce the law, cross-validate,
// detect anomalies, detect duplicates, allocate, persist. Records run
// strictly one at a time; there is no parallel mutation of shared
// tax-rule state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/taxatron/internal/allocation"
	"github.com/Veraticus/taxatron/internal/anomaly"
	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/config"
	"github.com/Veraticus/taxatron/internal/crossval"
	"github.com/Veraticus/taxatron/internal/dedup"
	"github.com/Veraticus/taxatron/internal/enforce"
	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/llm"
	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/service"
	"github.com/Veraticus/taxatron/internal/temporal"
)

// Record is one pipeline input: the expense plus whatever upstream
// and human input already exists for it.
type Record struct {
	Suggestion     *model.Suggestion
	ManualOverride []model.Allocation
	Expense        model.Expense
}

// Options control one batch.
type Options struct {
	// AutoDedup applies fuzzy duplicate matches automatically
	// instead of surfacing them for confirmation.
	AutoDedup bool
	// Strict raises fuzzy match confidence from medium to high.
	Strict bool
}

// Outcome says what happened to one record.
type Outcome string

// Record outcomes.
const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeReviewNeeded Outcome = "review_needed"
	// OutcomeBlocked means no situation covers the invoice date; the
	// record needs explicit user action before it can be determined.
	OutcomeBlocked Outcome = "blocked"
)

// Stats summarizes one batch run.
type Stats struct {
	Processed  int
	Flagged    int
	Duplicates int
	Blocked    int
}

// Pipeline wires the layers together for one configuration.
type Pipeline struct {
	storage    service.Storage
	rules      jurisdiction.Rules
	resolver   *temporal.Resolver
	validator  *crossval.Validator
	anomalies  *anomaly.Detector
	allocator  *allocation.Engine
	duplicates *dedup.Detector
	classifier *llm.Classifier
}

// New builds a pipeline from the decoded tax configuration. The
// classifier is optional: records arriving with a suggestion attached
// never trigger an upstream call.
func New(storage service.Storage, cfg *config.TaxConfig, registry *jurisdiction.Registry, classifier *llm.Classifier) (*Pipeline, error) {
	rules, err := registry.Get(cfg.Jurisdiction)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(registry); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s (%d more)", common.ErrInvalidConfig, errs[0].Error(), len(errs)-1)
	}

	kb := crossval.DefaultKnowledgeBase()
	return &Pipeline{
		storage:    storage,
		rules:      rules,
		resolver:   temporal.NewResolver(cfg.Situations, cfg.IncomeSources),
		validator:  crossval.NewValidator(kb),
		anomalies:  anomaly.NewDetectorWithConfig(kb, anomaly.DefaultConfig()),
		allocator:  allocation.NewEngine(cfg.AllocationRules, cfg.CategoryDefaults, rules),
		duplicates: dedup.NewDetector(storage),
		classifier: classifier,
	}, nil
}

// Startup flags runs a previous crashed instance left behind. Must be
// called once before the first batch.
func (p *Pipeline) Startup(ctx context.Context) error {
	_, err := p.storage.FlagInterruptedRuns(ctx)
	return err
}

// ProcessBatch runs records sequentially, each fully through the
// pipeline before the next begins. Cancellation is honored between
// records only: a record that entered enforcement runs to completion.
// The progress callback, when non-nil, fires after each record.
func (p *Pipeline) ProcessBatch(ctx context.Context, records []Record, opts Options, progress func(Outcome)) (Stats, error) {
	var stats Stats
	if len(records) == 0 {
		return stats, nil
	}

	run := &model.ProcessingRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    model.RunStatusRunning,
	}
	if err := p.storage.StartRun(ctx, run); err != nil {
		return stats, fmt.Errorf("failed to start run: %w", err)
	}

	slog.Info("Starting batch", "run_id", run.ID, "records", len(records))

	finish := func(status model.RunStatus) {
		run.Status = status
		run.Processed = stats.Processed
		run.Flagged = stats.Flagged + stats.Blocked
		run.Duplicates = stats.Duplicates
		if err := p.storage.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			slog.Error("Failed to finish run", "run_id", run.ID, "error", err)
		}
	}

	for _, rec := range records {
		select {
		case <-ctx.Done():
			finish(model.RunStatusInterrupted)
			return stats, ctx.Err()
		default:
		}

		outcome, err := p.processOne(ctx, rec, opts)
		if err != nil {
			finish(model.RunStatusFailed)
			return stats, fmt.Errorf("record %s: %w", rec.Expense.ID, err)
		}

		switch outcome {
		case OutcomeDuplicate:
			stats.Duplicates++
		case OutcomeReviewNeeded:
			stats.Processed++
			stats.Flagged++
		case OutcomeBlocked:
			stats.Blocked++
		default:
			stats.Processed++
		}
		if progress != nil {
			progress(outcome)
		}
	}

	finish(model.RunStatusCompleted)
	slog.Info("Batch complete",
		"run_id", run.ID,
		"processed", stats.Processed,
		"flagged", stats.Flagged,
		"duplicates", stats.Duplicates,
		"blocked", stats.Blocked)
	return stats, nil
}

func (p *Pipeline) processOne(ctx context.Context, rec Record, opts Options) (Outcome, error) {
	exp := rec.Expense

	// Identity gate: an already-ingested record ID is never
	// reprocessed.
	exists, err := p.storage.ExpenseExists(ctx, exp.ID)
	if err != nil {
		return "", err
	}
	if exists {
		slog.Debug("Skipping already-ingested record", "expense_id", exp.ID)
		return OutcomeDuplicate, nil
	}

	resolution, err := p.resolver.Resolve(exp.InvoiceDate)
	if errors.Is(err, temporal.ErrNoActiveSituation) {
		// A gap must block, never default to a neighboring
		// situation: that would misstate tax liability.
		slog.Warn("No situation covers invoice date",
			"expense_id", exp.ID,
			"invoice_date", exp.InvoiceDate.Format("2006-01-02"))
		if saveErr := p.storage.SaveExpense(ctx, &exp); saveErr != nil {
			return "", saveErr
		}
		return OutcomeBlocked, nil
	}
	if err != nil {
		return "", err
	}
	situation := resolution.Situation

	suggestion, err := p.obtainSuggestion(ctx, rec, situation)
	if err != nil {
		return "", err
	}

	classification := enforce.Apply(enforce.FromSuggestion(suggestion), exp, *situation, p.rules)

	crossResult := p.validator.Validate(classification, exp)
	if crossResult.ReviewRequired {
		classification.ReviewRequired = true
	}
	classification.Status = model.StatusCrossValidated

	history, err := p.storage.GetVendorHistory(ctx, exp.AccountID, exp.VendorDomain, 5)
	if err != nil {
		return "", err
	}
	flags := p.anomalies.Check(classification, exp, *history)
	for _, flag := range flags {
		slog.Debug("Anomaly flag raised",
			"expense_id", exp.ID, "rule", flag.Rule, "level", flag.Level)
	}
	if anomaly.RequiresReview(flags) {
		classification.ReviewRequired = true
	}
	classification.Status = model.StatusAnomalyChecked

	duplicate, err := p.duplicates.Detect(ctx, exp, dedup.Options{
		AutoDedup: opts.AutoDedup,
		Strict:    opts.Strict,
	})
	if err != nil {
		return "", err
	}
	if duplicate != nil && duplicate.AutoApplied {
		// Duplicates stay unallocated: that is what prevents double
		// counting.
		return OutcomeDuplicate, p.persistDuplicate(ctx, &exp, duplicate)
	}

	assignment := p.allocator.Assign(allocation.Input{
		Expense:        exp,
		Category:       classification.Category,
		ActiveSources:  resolution.ActiveSources,
		Suggestion:     &suggestion,
		ManualOverride: rec.ManualOverride,
		VendorHistory:  *history,
	})

	classification.Status = model.StatusFinal
	det := &model.Determination{
		DeterminedAt:   time.Now().UTC(),
		ExpenseID:      exp.ID,
		SituationID:    situation.ID,
		Classification: classification,
		Assignment:     assignment,
		CrossCheck:     crossResult.Record(),
		AnomalyFlags:   anomaly.Records(flags),
	}

	if err := p.persist(ctx, &exp, det, duplicate); err != nil {
		return "", err
	}

	if classification.ReviewRequired || assignment.Status == model.AssignmentReviewNeeded {
		return OutcomeReviewNeeded, nil
	}
	return OutcomeProcessed, nil
}

// obtainSuggestion uses the record's attached suggestion when
// present, otherwise asks the upstream classifier. The prompt context
// exposes only the active situation and the source IDs valid on the
// invoice date.
func (p *Pipeline) obtainSuggestion(ctx context.Context, rec Record, situation *model.Situation) (model.Suggestion, error) {
	if rec.Suggestion != nil {
		return *rec.Suggestion, nil
	}
	if p.classifier == nil {
		return model.Suggestion{Category: string(model.CategoryUnclear)}, nil
	}

	promptCtx := llm.BuildPromptContext(*situation,
		p.resolver.ActiveSourceIDs(rec.Expense.InvoiceDate), p.rules)
	suggestion, err := p.classifier.Classify(ctx, llm.Request{
		Context: promptCtx,
		Expense: rec.Expense,
	})
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("upstream classification: %w", err)
	}
	return suggestion, nil
}

func (p *Pipeline) persist(ctx context.Context, exp *model.Expense, det *model.Determination, dup *model.DuplicateRecord) error {
	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SaveExpense(ctx, exp); err != nil {
		return err
	}
	if err := tx.SaveDetermination(ctx, det); err != nil {
		return err
	}
	if dup != nil {
		if err := tx.SaveDuplicate(ctx, dup); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Pipeline) persistDuplicate(ctx context.Context, exp *model.Expense, dup *model.DuplicateRecord) error {
	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.SaveExpense(ctx, exp); err != nil {
		return err
	}
	if err := tx.SaveDuplicate(ctx, dup); err != nil {
		return err
	}
	return tx.Commit()
}
