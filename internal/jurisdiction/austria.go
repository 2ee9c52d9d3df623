package jurisdiction

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// Austrian constants.
const (
	atMealsTaxPercent       = 50
	atGiftThresholdCents    = 4000
	atAllocationGranularity = 10

	// Sachbezug for private use of a business car: 2% of the gross
	// list price per month, capped, zero for zero-emission vehicles.
	atImputedIncomeRatePermille = 20
	atImputedIncomeCapCents     = 96000
)

// Austria implements Rules for the Austrian jurisdiction (EStG/UStG).
type Austria struct {
	vendorDefaults map[string]model.Category
	labels         map[model.Category]string
}

// NewAustria returns the Austrian rule provider.
func NewAustria() *Austria {
	return &Austria{
		vendorDefaults: map[string]model.Category{
			"a1.net":     model.CategoryTelecom,
			"magenta.at": model.CategoryTelecom,
			"drei.at":    model.CategoryTelecom,
			"oebb.at":    model.CategoryFull,
			"wien.gv.at": model.CategoryFull,
		},
		labels: map[model.Category]string{
			model.CategoryFull:    "Voll absetzbar",
			model.CategoryVehicle: "KFZ",
			model.CategoryMeals:   "Bewirtung",
			model.CategoryTelecom: "Telefon/Internet",
			model.CategoryGifts:   "Geschenke",
			model.CategoryPartial: "Teilweise absetzbar",
			model.CategoryNone:    "Privat",
			model.CategoryUnclear: "Unklar",
		},
	}
}

// Code returns "AT".
func (a *Austria) Code() string { return "AT" }

// ValidateSituation checks a situation against Austrian constraints.
func (a *Austria) ValidateSituation(s model.Situation) []model.ValidationError {
	return validateSituationCommon(s, a.Code(), a.HomeOfficeModes())
}

// ValidateIncomeSource checks an income source definition.
func (a *Austria) ValidateIncomeSource(src model.IncomeSource) []model.ValidationError {
	return validateIncomeSourceCommon(src)
}

// ValidateAllocations checks an allocation split against the Austrian
// 10% granularity convention.
func (a *Austria) ValidateAllocations(allocs []model.Allocation) []model.ValidationError {
	return validateAllocationsCommon(allocs, atAllocationGranularity)
}

// VATRecovery computes input VAT recoverability. The no-VAT regime
// override comes first; everything after it assumes the standard
// regime.
func (a *Austria) VATRecovery(cat model.Category, s model.Situation, ec EvalContext) VATResult {
	if s.VATStatus == model.VATStatusNoVATRegime {
		return VATResult{
			Recoverable:    false,
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "no_vat_regime",
			LegalReference: "§ 6 Abs 1 Z 27 UStG",
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
				LegalReference: "§ 12 Abs 2 Z 2a UStG",
				Reason:         "input VAT on zero-emission vehicles is fully recoverable",
			}
		}
		return VATResult{
			Recoverable:    false,
			Percent:        0,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "vehicle_passenger_exclusion",
			LegalReference: "§ 12 Abs 2 Z 2 lit b UStG",
			Reason:         "passenger vehicles carry no input VAT recovery",
		}
	case model.CategoryMeals:
		return VATResult{
			Recoverable:    true,
			Percent:        100,
			Fixed:          true,
			Severity:       model.SeverityWarning,
			Rule:           "meals_vat_full",
			LegalReference: "§ 12 Abs 2 Z 2 UStG",
			Reason:         "input VAT on business meals is fully recoverable",
		}
	case model.CategoryGifts:
		if ec.AmountCents > atGiftThresholdCents {
			return VATResult{
				Recoverable:    false,
				Percent:        0,
				Fixed:          true,
				Severity:       model.SeverityError,
				Rule:           "gift_threshold",
				LegalReference: "§ 12 Abs 2 Z 2 lit a UStG iVm § 20 Abs 1 Z 3 EStG",
				Reason:         fmt.Sprintf("gifts above %d cents lose VAT recovery", atGiftThresholdCents),
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
			LegalReference: "§ 20 EStG",
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
func (a *Austria) IncomeTaxPercent(cat model.Category, s model.Situation, ec EvalContext) TaxResult {
	switch cat {
	case model.CategoryMeals:
		return TaxResult{
			Percent:        atMealsTaxPercent,
			Fixed:          true,
			Severity:       model.SeverityError,
			Rule:           "meals_fixed_percent",
			LegalReference: "§ 20 Abs 1 Z 3 EStG",
			Reason:         "business meals are 50% deductible in Austria",
		}
	case model.CategoryGifts:
		if ec.AmountCents > atGiftThresholdCents {
			return TaxResult{
				Percent:        0,
				Fixed:          true,
				Severity:       model.SeverityError,
				Rule:           "gift_threshold",
				LegalReference: "§ 20 Abs 1 Z 3 EStG",
				Reason:         fmt.Sprintf("gifts above %d cents are not deductible", atGiftThresholdCents),
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
			LegalReference: "§ 4 Abs 4 EStG",
			Reason:         "vehicle costs deduct fully; private use is taxed as imputed income (Sachbezug)",
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
			LegalReference: "§ 20 EStG",
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

// ImputedIncome returns the monthly Sachbezug for private use of a
// business vehicle, in cents. Electric vehicles are exempt.
func (a *Austria) ImputedIncome(s model.Situation, _ int, _ time.Month) int64 {
	if !s.OwnsVehicle || s.VehicleClass == model.VehicleClassElectric {
		return 0
	}
	if s.VehicleBusinessPercent >= 100 {
		return 0
	}
	monthly := s.VehicleListPriceCents * atImputedIncomeRatePermille / 1000
	if monthly > atImputedIncomeCapCents {
		monthly = atImputedIncomeCapCents
	}
	return monthly
}

// FixedPercent returns the fixed income tax percentage for categories
// that have one.
func (a *Austria) FixedPercent(cat model.Category) (int, bool) {
	switch cat {
	case model.CategoryMeals:
		return atMealsTaxPercent, true
	case model.CategoryFull:
		return 100, true
	case model.CategoryNone:
		return 0, true
	}
	return 0, false
}

// DefaultCategoryForVendor looks up a curated default category for a
// well-known Austrian vendor domain.
func (a *Austria) DefaultCategoryForVendor(domain string) (model.Category, bool) {
	cat, ok := a.vendorDefaults[strings.ToLower(domain)]
	return cat, ok
}

// CategoryLabel returns the German display label for a category.
func (a *Austria) CategoryLabel(cat model.Category) string {
	if label, ok := a.labels[cat]; ok {
		return label
	}
	return string(cat)
}

// HomeOfficeModes lists the Austrian home office deduction modes.
func (a *Austria) HomeOfficeModes() []string {
	return []string{"arbeitsplatzpauschale", "arbeitszimmer"}
}

// AllocationGranularity returns the minimum non-zero allocation step.
func (a *Austria) AllocationGranularity() int { return atAllocationGranularity }

// GiftThresholdCents returns the gift deductibility threshold.
func (a *Austria) GiftThresholdCents() int64 { return atGiftThresholdCents }

// ClassifierInstructions returns the Austrian guidance for the
// upstream AI classifier.
func (a *Austria) ClassifierInstructions() string {
	return strings.TrimSpace(fmt.Sprintf(`
Classify Austrian (AT) business expenses into one of: full, vehicle,
meals, telecom, gifts, partial, none, unclear.

Jurisdiction rules to respect:
- Business meals (Bewirtung) deduct at %d%% for income tax; their
  input VAT is fully recoverable.
- Passenger vehicle costs carry no input VAT recovery unless the
  vehicle is zero-emission.
- Gifts above %d cents lose both deductibility and VAT recovery.
- Kleinunternehmer (no-VAT regime) never recover input VAT.
- When in doubt, answer "unclear" rather than guessing.`,
		atMealsTaxPercent, atGiftThresholdCents))
}
