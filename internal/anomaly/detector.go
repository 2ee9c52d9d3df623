// Package anomaly flags statistically or contextually suspicious
// expense records. The rules are stateless; the only inputs are the
// enforced classification and a lightweight per-vendor history.
package anomaly

import (
	"fmt"

	"github.com/Veraticus/taxatron/internal/crossval"
	"github.com/Veraticus/taxatron/internal/model"
)

// Level grades an anomaly flag. Any review-required flag forces the
// whole record into manual review even when the legal and
// cross-validation layers found nothing wrong.
type Level string

// Flag levels.
const (
	LevelWarning        Level = "warning"
	LevelReviewRequired Level = "review_required"
)

// Flag is one raised anomaly.
type Flag struct {
	Rule   string `json:"rule"`
	Level  Level  `json:"level"`
	Reason string `json:"reason"`
}

// Config holds the detector thresholds.
type Config struct {
	PersonalThresholdCents    int64
	FirstVendorThresholdCents int64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		PersonalThresholdCents:    20000,
		FirstVendorThresholdCents: 50000,
	}
}

// Detector evaluates the anomaly rule set.
type Detector struct {
	kb     *crossval.KnowledgeBase
	config Config
}

// NewDetector creates a detector with default thresholds.
func NewDetector(kb *crossval.KnowledgeBase) *Detector {
	return NewDetectorWithConfig(kb, DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom thresholds.
func NewDetectorWithConfig(kb *crossval.KnowledgeBase, config Config) *Detector {
	return &Detector{kb: kb, config: config}
}

// Check runs every rule and returns the raised flags.
func (d *Detector) Check(c model.Classification, exp model.Expense, history model.VendorHistory) []Flag {
	var flags []Flag

	if c.Category == model.CategoryNone && exp.AmountCents > d.config.PersonalThresholdCents {
		flags = append(flags, Flag{
			Rule:  "large_personal_expense",
			Level: LevelReviewRequired,
			Reason: fmt.Sprintf("personal expense of %d cents exceeds the %d cent threshold",
				exp.AmountCents, d.config.PersonalThresholdCents),
		})
	}

	if history.FirstInvoice() && c.IncomeTaxPercent == 100 &&
		exp.AmountCents > d.config.FirstVendorThresholdCents {
		flags = append(flags, Flag{
			Rule:  "first_vendor_high_value",
			Level: LevelWarning,
			Reason: fmt.Sprintf("first invoice from %s, fully deductible at %d cents",
				exp.VendorDomain, exp.AmountCents),
		})
	}

	if history.InvoiceCount > 0 && history.LastCategory != "" &&
		history.LastCategory != model.CategoryUnclear &&
		history.LastCategory != c.Category {
		flags = append(flags, Flag{
			Rule:  "category_drift",
			Level: LevelWarning,
			Reason: fmt.Sprintf("vendor %s was last classified %q, now %q",
				exp.VendorDomain, history.LastCategory, c.Category),
		})
	}

	if c.VATRecoverable && d.kb.StructurallyNoVAT(exp.VendorDomain, exp.VendorName) {
		flags = append(flags, Flag{
			Rule:  "vat_on_no_vat_supply",
			Level: LevelReviewRequired,
			Reason: fmt.Sprintf("VAT claimed on %q, which matches a supply type that carries no input VAT",
				exp.VendorName),
		})
	}

	return flags
}

// Records converts flags into the form persisted on a determination.
func Records(flags []Flag) []model.AnomalyFlag {
	if len(flags) == 0 {
		return nil
	}
	records := make([]model.AnomalyFlag, len(flags))
	for i, f := range flags {
		records[i] = model.AnomalyFlag{Rule: f.Rule, Level: string(f.Level), Reason: f.Reason}
	}
	return records
}

// RequiresReview reports whether any flag forces manual review.
func RequiresReview(flags []Flag) bool {
	for _, f := range flags {
		if f.Level == LevelReviewRequired {
			return true
		}
	}
	return false
}
