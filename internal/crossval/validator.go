package crossval

import (
	"fmt"

	"github.com/Veraticus/taxatron/internal/model"
)

// Verdict is the outcome of a vendor cross-check.
type Verdict string

// Verdicts.
const (
	VerdictUnknownVendor Verdict = "unknown_vendor"
	VerdictAgree         Verdict = "agree"
	VerdictDisagree      Verdict = "disagree"
)

// Confidence grades how much weight the cross-check carries.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Result annotates a classification with the knowledge base's
// opinion. The classification itself is never modified here.
type Result struct {
	Verdict        Verdict
	Confidence     Confidence
	VendorCategory model.Category
	Reason         string
	ReviewRequired bool
}

// Record converts the result into the form persisted on a
// determination.
func (r Result) Record() model.CrossCheck {
	return model.CrossCheck{
		Verdict:        string(r.Verdict),
		Confidence:     string(r.Confidence),
		VendorCategory: r.VendorCategory,
		Reason:         r.Reason,
		ReviewRequired: r.ReviewRequired,
	}
}

// Validator cross-checks classifications against the knowledge base.
type Validator struct {
	kb *KnowledgeBase
}

// NewValidator builds a validator over the given knowledge base.
func NewValidator(kb *KnowledgeBase) *Validator {
	return &Validator{kb: kb}
}

// Validate compares the enforced category against the vendor's
// canonical one. A personal-vs-business conflict forces manual
// review; a full/partial boundary disagreement is only a warning.
func (v *Validator) Validate(c model.Classification, exp model.Expense) Result {
	info, ok := v.kb.Lookup(exp.VendorDomain, exp.VendorName)
	if !ok {
		return Result{
			Verdict:    VerdictUnknownVendor,
			Confidence: ConfidenceLow,
			Reason:     fmt.Sprintf("vendor %q not in knowledge base", exp.VendorName),
		}
	}

	if info.Category == c.Category {
		return Result{
			Verdict:        VerdictAgree,
			Confidence:     ConfidenceHigh,
			VendorCategory: info.Category,
			Reason:         fmt.Sprintf("knowledge base confirms %q for %s", c.Category, info.Name),
		}
	}

	if personalBusinessConflict(info.Category, c.Category) {
		return Result{
			Verdict:        VerdictDisagree,
			Confidence:     ConfidenceLow,
			VendorCategory: info.Category,
			ReviewRequired: true,
			Reason: fmt.Sprintf("personal-vs-business conflict: classified %q, knowledge base says %q for %s",
				c.Category, info.Category, info.Name),
		}
	}

	return Result{
		Verdict:        VerdictDisagree,
		Confidence:     ConfidenceMedium,
		VendorCategory: info.Category,
		Reason: fmt.Sprintf("boundary disagreement: classified %q, knowledge base says %q for %s",
			c.Category, info.Category, info.Name),
	}
}

// personalBusinessConflict reports whether exactly one side considers
// the expense fully non-deductible.
func personalBusinessConflict(a, b model.Category) bool {
	return (a == model.CategoryNone) != (b == model.CategoryNone)
}
