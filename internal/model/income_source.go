package model

import "time"

// IncomeSourceKind categorizes a stream of business income.
type IncomeSourceKind string

// Income source kinds.
const (
	SourceKindFreelance   IncomeSourceKind = "freelance"
	SourceKindTrade       IncomeSourceKind = "trade"
	SourceKindEmployment  IncomeSourceKind = "employment"
	SourceKindRental      IncomeSourceKind = "rental"
	SourceKindAgriculture IncomeSourceKind = "agriculture"
)

// IncomeSource is one of possibly several concurrent streams of
// business income. An expense allocated to a source must have an
// invoice date inside [ValidFrom, ValidTo).
type IncomeSource struct {
	ValidFrom time.Time
	ValidTo   *time.Time
	ID        string
	Name      string
	Kind      IncomeSourceKind

	// Optional per-source overrides of the situation-level business
	// use percentages. Nil means the situation value applies.
	TelecomPercentOverride *int
	VehiclePercentOverride *int
}

// Contains reports whether date falls inside [ValidFrom, ValidTo).
func (s *IncomeSource) Contains(date time.Time) bool {
	if date.Before(s.ValidFrom) {
		return false
	}
	if s.ValidTo != nil && !date.Before(*s.ValidTo) {
		return false
	}
	return true
}
