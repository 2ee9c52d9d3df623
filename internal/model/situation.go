package model

import "time"

// VATStatus is the taxpayer's VAT regime during a situation.
type VATStatus string

// VAT regimes.
const (
	// VATStatusNoVATRegime is the small-business exemption
	// (Kleinunternehmer): no VAT charged, no input VAT recovered.
	VATStatusNoVATRegime VATStatus = "no_vat_regime"
	// VATStatusStandard is the regular VAT regime with input tax
	// recovery.
	VATStatusStandard VATStatus = "standard"
)

// VehicleClass distinguishes vehicles for VAT recovery purposes.
type VehicleClass string

// Vehicle classes.
const (
	VehicleClassICE      VehicleClass = "ice"
	VehicleClassElectric VehicleClass = "electric"
)

// Situation is a snapshot of a taxpayer's tax-relevant status valid
// over the half-open interval [From, To). A nil To means the
// situation is ongoing. Situations for one taxpayer must not overlap;
// gaps between situations are surfaced by the temporal resolver, not
// papered over.
type Situation struct {
	From                    time.Time
	To                      *time.Time
	ID                      string
	Jurisdiction            string
	VATStatus               VATStatus
	HomeOfficeMode          string
	VehicleClass            VehicleClass
	VehicleListPriceCents   int64
	TelecomBusinessPercent  int
	InternetBusinessPercent int
	VehicleBusinessPercent  int
	OwnsVehicle             bool
}

// Contains reports whether date falls inside [From, To).
func (s *Situation) Contains(date time.Time) bool {
	if date.Before(s.From) {
		return false
	}
	if s.To != nil && !date.Before(*s.To) {
		return false
	}
	return true
}

// Ongoing reports whether the situation has no end date yet.
func (s *Situation) Ongoing() bool {
	return s.To == nil
}

// Overlaps reports whether two situations' intervals intersect.
func (s *Situation) Overlaps(other *Situation) bool {
	if s.To != nil && !other.From.Before(*s.To) {
		return false
	}
	if other.To != nil && !s.From.Before(*other.To) {
		return false
	}
	return true
}
