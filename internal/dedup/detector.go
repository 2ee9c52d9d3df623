// Package dedup prevents the same underlying financial event from
// being counted twice. Four independent strategies run in increasing
// cost order; a match at a cheaper strategy short-circuits the rest.
// Detection is independent of tax logic and runs before allocation:
// an unallocated duplicate causes no double-counting.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// FuzzyWindowDays is the invoice date tolerance of the fuzzy
// strategy. Records further apart never fuzzy-match.
const FuzzyWindowDays = 7

// Store is the slice of persistence the detector needs.
type Store interface {
	ExpenseExists(ctx context.Context, id string) (bool, error)
	FindByInvoiceNumber(ctx context.Context, accountID, invoiceNumber, vendorDomain, excludeID string) (*model.Expense, error)
	FindByContentHash(ctx context.Context, accountID, hash, excludeID string) (*model.Expense, error)
	FindFuzzyCandidates(ctx context.Context, accountID, vendorDomain string, amountCents int64, from, to time.Time, excludeID string) ([]model.Expense, error)
}

// Options control the fuzzy strategy. Fuzzy matches are only
// auto-applied when the caller opts in; otherwise they surface for
// manual confirmation.
type Options struct {
	AutoDedup bool
	Strict    bool
}

// Detector evaluates the four strategies against persisted records
// for the same account.
type Detector struct {
	store Store
}

// NewDetector builds a detector over the given store.
func NewDetector(store Store) *Detector {
	return &Detector{store: store}
}

// Detect returns the first duplicate match for exp, or nil when the
// record is new.
func (d *Detector) Detect(ctx context.Context, exp model.Expense, opts Options) (*model.DuplicateRecord, error) {
	// Strategy 1: identity. The same record ID is never reprocessed.
	exists, err := d.store.ExpenseExists(ctx, exp.ID)
	if err != nil {
		return nil, fmt.Errorf("identity check failed: %w", err)
	}
	if exists {
		return &model.DuplicateRecord{
			DetectedAt:  time.Now().UTC(),
			ExpenseID:   exp.ID,
			OriginalID:  exp.ID,
			Confidence:  model.ConfidenceExact,
			Strategy:    model.StrategyIdentity,
			AutoApplied: true,
		}, nil
	}

	// Strategy 2: same invoice number from the same vendor domain.
	if exp.InvoiceNumber != "" && exp.VendorDomain != "" {
		original, err := d.store.FindByInvoiceNumber(ctx, exp.AccountID, exp.InvoiceNumber, exp.VendorDomain, exp.ID)
		if err != nil {
			return nil, fmt.Errorf("invoice number check failed: %w", err)
		}
		if original != nil {
			return &model.DuplicateRecord{
				DetectedAt:  time.Now().UTC(),
				ExpenseID:   exp.ID,
				OriginalID:  original.ID,
				Confidence:  model.ConfidenceExact,
				Strategy:    model.StrategyInvoiceNumber,
				AutoApplied: true,
			}, nil
		}
	}

	// Strategy 3: identical artifact hash. Only applicable once an
	// attachment was fetched and hashed.
	if exp.ContentHash != "" {
		original, err := d.store.FindByContentHash(ctx, exp.AccountID, exp.ContentHash, exp.ID)
		if err != nil {
			return nil, fmt.Errorf("content hash check failed: %w", err)
		}
		if original != nil {
			return &model.DuplicateRecord{
				DetectedAt:  time.Now().UTC(),
				ExpenseID:   exp.ID,
				OriginalID:  original.ID,
				Confidence:  model.ConfidenceExact,
				Strategy:    model.StrategyContentHash,
				AutoApplied: true,
			}, nil
		}
	}

	// Strategy 4: fuzzy. Same sender domain, same amount, invoice
	// date within the window.
	if exp.VendorDomain != "" {
		from := exp.InvoiceDate.AddDate(0, 0, -FuzzyWindowDays)
		to := exp.InvoiceDate.AddDate(0, 0, FuzzyWindowDays)
		candidates, err := d.store.FindFuzzyCandidates(ctx, exp.AccountID, exp.VendorDomain, exp.AmountCents, from, to, exp.ID)
		if err != nil {
			return nil, fmt.Errorf("fuzzy check failed: %w", err)
		}
		if len(candidates) > 0 {
			confidence := model.ConfidenceMedium
			if opts.Strict {
				confidence = model.ConfidenceHigh
			}
			return &model.DuplicateRecord{
				DetectedAt:  time.Now().UTC(),
				ExpenseID:   exp.ID,
				OriginalID:  candidates[0].ID,
				Confidence:  confidence,
				Strategy:    model.StrategyFuzzy,
				AutoApplied: opts.AutoDedup,
			}, nil
		}
	}

	return nil, nil
}
