package model

import "time"

// DuplicateStrategy identifies which matching strategy found a
// duplicate. Strategies run in increasing cost order; a match at an
// earlier strategy short-circuits the later ones.
type DuplicateStrategy string

// Duplicate strategies, cheapest first.
const (
	StrategyIdentity      DuplicateStrategy = "identity"
	StrategyInvoiceNumber DuplicateStrategy = "invoice_number"
	StrategyContentHash   DuplicateStrategy = "content_hash"
	StrategyFuzzy         DuplicateStrategy = "fuzzy"
)

// DuplicateConfidence tiers a duplicate match.
type DuplicateConfidence string

// Duplicate confidence tiers.
const (
	ConfidenceExact  DuplicateConfidence = "exact"
	ConfidenceHigh   DuplicateConfidence = "high"
	ConfidenceMedium DuplicateConfidence = "medium"
	ConfidenceLow    DuplicateConfidence = "low"
)

// DuplicateRecord links an expense to the earlier original it
// duplicates.
type DuplicateRecord struct {
	DetectedAt time.Time           `json:"detected_at"`
	ExpenseID  string              `json:"expense_id"`
	OriginalID string              `json:"original_id"`
	Confidence DuplicateConfidence `json:"confidence"`
	Strategy   DuplicateStrategy   `json:"strategy"`
	// AutoApplied is true when the caller opted into automatic
	// deduplication; otherwise the match awaits manual confirmation.
	AutoApplied bool `json:"auto_applied"`
}
