// Package jurisdiction implements per-country tax rule providers
// behind a single contract, so the pipeline never branches on a
// country code. New jurisdictions register with the Registry without
// touching calling code.
package jurisdiction

import (
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// EvalContext carries the per-expense facts a rule evaluation needs
// beyond the category itself. The gifts threshold rule is the reason
// the amount is always present here, not just the category.
type EvalContext struct {
	InvoiceDate  time.Time
	VendorDomain string
	AmountCents  int64
}

// VATResult is the law-consistent VAT recovery outcome for one
// category in one situation.
type VATResult struct {
	Reason         string
	Rule           string
	LegalReference string
	Severity       model.Severity
	Percent        int
	Recoverable    bool
	// Fixed means the law prescribes this value regardless of what
	// upstream suggested; a differing submitted value is corrected
	// and recorded as a violation at Severity.
	Fixed bool
}

// TaxResult is the law-consistent income tax deductibility outcome.
type TaxResult struct {
	Reason         string
	Rule           string
	LegalReference string
	Severity       model.Severity
	Percent        int
	Fixed          bool
}

// Rules is the contract every jurisdiction implements exactly once.
// Validation methods return structured errors for expected domain
// violations and never panic.
type Rules interface {
	// Code returns the upper-cased ISO country code.
	Code() string

	ValidateSituation(s model.Situation) []model.ValidationError
	ValidateIncomeSource(src model.IncomeSource) []model.ValidationError
	ValidateAllocations(allocs []model.Allocation) []model.ValidationError

	// VATRecovery and IncomeTaxPercent compute the two independent
	// axes of a tax determination for a category in a situation.
	VATRecovery(cat model.Category, s model.Situation, ec EvalContext) VATResult
	IncomeTaxPercent(cat model.Category, s model.Situation, ec EvalContext) TaxResult

	// ImputedIncome returns the phantom income (in cents) this
	// jurisdiction taxes for private use of a business vehicle in
	// the given month, or 0 when none applies.
	ImputedIncome(s model.Situation, year int, month time.Month) int64

	// FixedPercent returns the jurisdiction's fixed income tax
	// percentage for a category, when one exists.
	FixedPercent(cat model.Category) (int, bool)

	// DefaultCategoryForVendor returns the canonical category for a
	// well-known vendor domain, when one is curated.
	DefaultCategoryForVendor(domain string) (model.Category, bool)

	// CategoryLabel returns the jurisdiction's display label for a
	// category.
	CategoryLabel(cat model.Category) string

	// HomeOfficeModes lists the home office deduction modes valid in
	// this jurisdiction. A mode from another jurisdiction is a
	// validation error.
	HomeOfficeModes() []string

	// AllocationGranularity is the minimum non-zero allocation
	// percentage step.
	AllocationGranularity() int

	// GiftThresholdCents is the amount above which gifts lose all
	// deductibility and VAT recovery.
	GiftThresholdCents() int64

	// ClassifierInstructions returns the natural-language guidance
	// sent to the upstream AI classifier, so jurisdiction knowledge
	// stays here instead of being duplicated into prompt text.
	ClassifierInstructions() string
}
