package jurisdiction

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// German constants. Meals deduct at 70% rather than Austria's 50%,
// and the gift threshold sits higher; the VAT side of meals is the
// same in both jurisdictions.
const (
	deMealsTaxPercent       = 70
	deGiftThresholdCents    = 5000
	deAllocationGranularity = 10

	// 1%-Regel: monthly imputed income of 1% of the gross list
	// price, quartered for electric vehicles.
	deImputedIncomeRatePermille = 10
)

// Germany implements Rules for the German jurisdiction (EStG/UStG).
type Germany struct {
	vendorDefaults map[string]model.Category
	labels         map[model.Category]string
}

// NewGermany returns the German rule provider.
func NewGermany() *Germany {
	return &Germany{
		vendorDefaults: map[string]model.Category{
			"telekom.de":  model.CategoryTelecom,
			"vodafone.de": model.CategoryTelecom,
			"o2online.de": model.CategoryTelecom,
			"bahn.de":     model.CategoryFull,
		},
		labels: map[model.Category]string{
			model.CategoryFull:    "Voll abzugsfähig",
			model.CategoryVehicle: "KFZ",
			model.CategoryMeals:   "Bewirtung",
			model.CategoryTelecom: "Telefon/Internet",
			model.CategoryGifts:   "Geschenke",
			model.CategoryPartial: "Teilweise abzugsfähig",
			model.CategoryNone:    "Privat",
			model.CategoryUnclear: "Unklar",
		},
	}
}

// Code returns "DE".
func (g *Germany) Code() string { return "DE" }

// ValidateSituation checks a situation against German constraints.
func (g *Germany) ValidateSituation(s model.Situation) []model.ValidationError {
	return validateSituationCommon(s, g.Code(), g.HomeOfficeModes())
}

// ValidateIncomeSource checks an income source definition.
func (g *Germany) ValidateIncomeSource(src model.IncomeSource) []model.ValidationError {
	return validateIncomeSourceCommon(src)
}

// ValidateAllocations checks an allocation split.
func (g *Germany) ValidateAllocations(allocs []model.Allocation) []model.ValidationError {
	return validateAllocationsCommon(allocs, deAllocationGranularity)
}

// VATRecovery computes input VAT recoverability under German law.
func (g *Germany) VATRecovery(cat model.Category, s model.Situation, ec EvalContext) VATResult {
	if s.VATStatus == model.VATStatusNoVATRegime {
		return VATResult{
			Recoverable:    false,
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "no_vat_regime",
			LegalReference: "§ 19 UStG",
			Reason:         "Kleinunternehmer forfeit input VAT recovery entirely",
		}
	}

	switch cat {
	case model.CategoryVehicle:
		if s.VehicleClass == model.VehicleClassElectric {
			return VATResult{
				Recoverable:    true,
				Percent:        100,
				Fixed:          true,
				Severity:       model.SeverityWarning,
				Rule:           "vehicle_zero_emission",
				LegalReference: "§ 15 UStG",
				Reason:         "input VAT on zero-emission vehicles is fully recoverable",
			}
		}
		return VATResult{
			Recoverable:    false,
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "vehicle_passenger_exclusion",
			LegalReference: "§ 15 Abs 1a UStG",
			Reason:         "passenger vehicles carry no input VAT recovery",
		}
	case model.CategoryMeals:
		return VATResult{
			Recoverable:    true,
			Percent:        100,
			Fixed:          true,
			Severity:       model.SeverityWarning,
			Rule:           "meals_vat_full",
			LegalReference: "§ 15 Abs 1a UStG",
			Reason:         "input VAT on business meals is fully recoverable",
		}
	case model.CategoryGifts:
		if ec.AmountCents > deGiftThresholdCents {
			return VATResult{
				Recoverable:    false,
				Percent:        0,
				Fixed:          true,
				Severity:       model.SeverityError,
				Rule:           "gift_threshold",
				LegalReference: "§ 15 Abs 1a UStG iVm § 4 Abs 5 Nr 1 EStG",
				Reason:         fmt.Sprintf("gifts above %d cents lose VAT recovery", deGiftThresholdCents),
			}
		}
		return VATResult{
			Recoverable: true,
			Percent:     100,
			Fixed:       true,
			Severity:    model.SeverityWarning,
			Rule:        "gift_below_threshold",
			Reason:      "low-value gifts keep full VAT recovery",
		}
	case model.CategoryTelecom:
		return VATResult{
			Recoverable: true,
			Percent:     s.TelecomBusinessPercent,
			Fixed:       true,
			Severity:    model.SeverityWarning,
			Rule:        "telecom_business_share",
			Reason:      fmt.Sprintf("VAT recoverable at the configured %d%% business share", s.TelecomBusinessPercent),
		}
	case model.CategoryFull:
		return VATResult{
			Recoverable: true,
			Percent:     100,
			Fixed:       true,
			Severity:    model.SeverityWarning,
			Rule:        "full_canonical",
			Reason:      "fully deductible expenses recover input VAT in full",
		}
	case model.CategoryNone:
		return VATResult{
			Recoverable:    false,
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityWarning,
			Rule:           "none_canonical",
			LegalReference: "§ 12 Nr 1 EStG",
			Reason:         "personal expenses recover no input VAT",
		}
	case model.CategoryPartial:
		return VATResult{
			Recoverable: true,
			Percent:     100,
			Fixed:       false,
			Reason:      "partially deductible; submitted VAT share is kept when plausible",
		}
	default: // unclear
		return VATResult{
			Recoverable: false,
			Percent:     0,
			Fixed:       false,
			Reason:      "category unclear, VAT recovery withheld pending review",
		}
	}
}

// IncomeTaxPercent computes the income tax deductible percentage.
func (g *Germany) IncomeTaxPercent(cat model.Category, s model.Situation, ec EvalContext) TaxResult {
	switch cat {
	case model.CategoryMeals:
		return TaxResult{
			Percent:        deMealsTaxPercent,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "meals_fixed_percent",
			LegalReference: "§ 4 Abs 5 Nr 2 EStG",
			Reason:         "business meals are 70% deductible in Germany",
		}
	case model.CategoryGifts:
		if ec.AmountCents > deGiftThresholdCents {
			return TaxResult{
				Percent:        0,
				Fixed:          true,
				Severity:       model.SeverityError,
				Rule:           "gift_threshold",
				LegalReference: "§ 4 Abs 5 Nr 1 EStG",
				Reason:         fmt.Sprintf("gifts above %d cents are not deductible", deGiftThresholdCents),
			}
		}
		return TaxResult{
			Percent:  100,
			Fixed:    true,
			Severity: model.SeverityWarning,
			Rule:     "gift_below_threshold",
			Reason:   "low-value promotional gifts are fully deductible",
		}
	case model.CategoryVehicle:
		return TaxResult{
			Percent:        100,
			Fixed:          true,
			Severity:       model.SeverityWarning,
			Rule:           "vehicle_business_portion",
			LegalReference: "§ 6 Abs 1 Nr 4 EStG",
			Reason:         "vehicle costs deduct fully; private use is taxed via the 1% rule",
		}
	case model.CategoryTelecom:
		return TaxResult{
			Percent:  s.TelecomBusinessPercent,
			Fixed:    true,
			Severity: model.SeverityWarning,
			Rule:     "telecom_business_share",
			Reason:   fmt.Sprintf("telecom deducts at the configured %d%% business share", s.TelecomBusinessPercent),
		}
	case model.CategoryFull:
		return TaxResult{
			Percent:  100,
			Fixed:    true,
			Severity: model.SeverityWarning,
			Rule:     "full_canonical",
			Reason:   "category full is by definition 100% deductible",
		}
	case model.CategoryNone:
		return TaxResult{
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityWarning,
			Rule:           "none_canonical",
			LegalReference: "§ 12 Nr 1 EStG",
			Reason:         "personal expenses are not deductible",
		}
	case model.CategoryPartial:
		return TaxResult{
			Percent: 50,
			Fixed:   false,
			Reason:  "partially deductible; submitted share is kept when plausible",
		}
	default: // unclear
		return TaxResult{
			Percent: 0,
			Fixed:   false,
			Reason:  "category unclear, deduction withheld pending review",
		}
	}
}

// ImputedIncome returns the monthly 1%-Regel phantom income in cents.
func (g *Germany) ImputedIncome(s model.Situation, _ int, _ time.Month) int64 {
	if !s.OwnsVehicle || s.VehicleListPriceCents == 0 {
		return 0
	}
	if s.VehicleBusinessPercent >= 100 {
		return 0
	}
	if s.VehicleClass == model.VehicleClassElectric {
		// 0.25% of list price for electric vehicles.
		return s.VehicleListPriceCents * 25 / 10000
	}
	return s.VehicleListPriceCents * deImputedIncomeRatePermille / 1000
}

// FixedPercent returns the fixed income tax percentage for categories
// that have one.
func (g *Germany) FixedPercent(cat model.Category) (int, bool) {
	switch cat {
	case model.CategoryMeals:
		return deMealsTaxPercent, true
	case model.CategoryFull:
		return 100, true
	case model.CategoryNone:
		return 0, true
	}
	return 0, false
}

// DefaultCategoryForVendor looks up a curated default category for a
// well-known German vendor domain.
func (g *Germany) DefaultCategoryForVendor(domain string) (model.Category, bool) {
	cat, ok := g.vendorDefaults[strings.ToLower(domain)]
	return cat, ok
}

// CategoryLabel returns the German display label for a category.
func (g *Germany) CategoryLabel(cat model.Category) string {
	if label, ok := g.labels[cat]; ok {
		return label
	}
	return string(cat)
}

// HomeOfficeModes lists the German home office deduction modes.
func (g *Germany) HomeOfficeModes() []string {
	return []string{"homeoffice_pauschale", "haeusliches_arbeitszimmer"}
}

// AllocationGranularity returns the minimum non-zero allocation step.
func (g *Germany) AllocationGranularity() int { return deAllocationGranularity }

// GiftThresholdCents returns the gift deductibility threshold.
func (g *Germany) GiftThresholdCents() int64 { return deGiftThresholdCents }

// ClassifierInstructions returns the German guidance for the upstream
// AI classifier.
func (g *Germany) ClassifierInstructions() string {
	return strings.TrimSpace(fmt.Sprintf(`
Classify German (DE) business expenses into one of: full, vehicle,
meals, telecom, gifts, partial, none, unclear.

Jurisdiction rules to respect:
- Business meals (Bewirtung) deduct at %d%% for income tax; their
  input VAT is fully recoverable.
- Passenger vehicle costs carry no input VAT recovery unless the
  vehicle is zero-emission.
- Gifts above %d cents lose both deductibility and VAT recovery.
- Kleinunternehmer (§ 19 UStG) never recover input VAT.
- When in doubt, answer "unclear" rather than guessing.`,
		deMealsTaxPercent, deGiftThresholdCents))
}
