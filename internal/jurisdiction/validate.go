package jurisdiction

import (
	"fmt"

	"github.com/Veraticus/taxatron/internal/model"
)

// Validation codes shared by all jurisdictions.
const (
	codeRequired      = "required"
	codeInvalidValue  = "invalid_value"
	codeOutOfRange    = "out_of_range"
	codeWrongCountry  = "wrong_jurisdiction"
	codeBadInterval   = "invalid_interval"
	codeBadGranular   = "below_granularity"
	codeSumExceeds100 = "sum_exceeds_100"
)

func validateSituationCommon(s model.Situation, code string, homeOfficeModes []string) []model.ValidationError {
	var errs []model.ValidationError

	if s.Jurisdiction != code {
		errs = append(errs, model.ValidationError{
			Field:   "jurisdiction",
			Code:    codeWrongCountry,
			Message: fmt.Sprintf("situation belongs to %q, validated against %s rules", s.Jurisdiction, code),
		})
	}

	switch s.VATStatus {
	case model.VATStatusNoVATRegime, model.VATStatusStandard:
	default:
		errs = append(errs, model.ValidationError{
			Field:   "vat_status",
			Code:    codeInvalidValue,
			Message: fmt.Sprintf("unknown VAT status %q", s.VATStatus),
		})
	}

	if s.To != nil && !s.From.Before(*s.To) {
		errs = append(errs, model.ValidationError{
			Field:   "to",
			Code:    codeBadInterval,
			Message: "situation end must be after its start",
		})
	}

	for field, pct := range map[string]int{
		"telecom_business_percent":  s.TelecomBusinessPercent,
		"internet_business_percent": s.InternetBusinessPercent,
		"vehicle_business_percent":  s.VehicleBusinessPercent,
	} {
		if pct < 0 || pct > 100 {
			errs = append(errs, model.ValidationError{
				Field:   field,
				Code:    codeOutOfRange,
				Message: fmt.Sprintf("%d%% is outside 0..100", pct),
			})
		}
	}

	if s.OwnsVehicle {
		switch s.VehicleClass {
		case model.VehicleClassICE, model.VehicleClassElectric:
		default:
			errs = append(errs, model.ValidationError{
				Field:   "vehicle_class",
				Code:    codeInvalidValue,
				Message: fmt.Sprintf("unknown vehicle class %q", s.VehicleClass),
			})
		}
	}

	if s.HomeOfficeMode != "" {
		valid := false
		for _, mode := range homeOfficeModes {
			if s.HomeOfficeMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, model.ValidationError{
				Field:   "home_office_mode",
				Code:    codeInvalidValue,
				Message: fmt.Sprintf("home office mode %q is not valid in %s", s.HomeOfficeMode, code),
			})
		}
	}

	return errs
}

func validateIncomeSourceCommon(src model.IncomeSource) []model.ValidationError {
	var errs []model.ValidationError

	if src.Name == "" {
		errs = append(errs, model.ValidationError{
			Field:   "name",
			Code:    codeRequired,
			Message: "income source needs a name",
		})
	}

	switch src.Kind {
	case model.SourceKindFreelance, model.SourceKindTrade, model.SourceKindEmployment,
		model.SourceKindRental, model.SourceKindAgriculture:
	default:
		errs = append(errs, model.ValidationError{
			Field:   "kind",
			Code:    codeInvalidValue,
			Message: fmt.Sprintf("unknown income source kind %q", src.Kind),
		})
	}

	if src.ValidTo != nil && !src.ValidFrom.Before(*src.ValidTo) {
		errs = append(errs, model.ValidationError{
			Field:   "valid_to",
			Code:    codeBadInterval,
			Message: "income source end must be after its start",
		})
	}

	for field, pct := range map[string]*int{
		"telecom_percent_override": src.TelecomPercentOverride,
		"vehicle_percent_override": src.VehiclePercentOverride,
	} {
		if pct != nil && (*pct < 0 || *pct > 100) {
			errs = append(errs, model.ValidationError{
				Field:   field,
				Code:    codeOutOfRange,
				Message: fmt.Sprintf("%d%% is outside 0..100", *pct),
			})
		}
	}

	return errs
}

func validateAllocationsCommon(allocs []model.Allocation, granularity int) []model.ValidationError {
	var errs []model.ValidationError

	total := 0
	for i, alloc := range allocs {
		field := fmt.Sprintf("allocations[%d].percent", i)
		switch {
		case alloc.Percent < 0 || alloc.Percent > 100:
			errs = append(errs, model.ValidationError{
				Field:   field,
				Code:    codeOutOfRange,
				Message: fmt.Sprintf("%d%% is outside 0..100", alloc.Percent),
			})
		case alloc.Percent != 0 && alloc.Percent < granularity:
			errs = append(errs, model.ValidationError{
				Field:   field,
				Code:    codeBadGranular,
				Message: fmt.Sprintf("allocations must be 0%% or at least %d%%", granularity),
			})
		}
		if alloc.SourceID == "" {
			errs = append(errs, model.ValidationError{
				Field:   fmt.Sprintf("allocations[%d].source_id", i),
				Code:    codeRequired,
				Message: "allocation needs a source",
			})
		}
		total += alloc.Percent
	}

	if total > 100 {
		errs = append(errs, model.ValidationError{
			Field:   "allocations",
			Code:    codeSumExceeds100,
			Message: fmt.Sprintf("allocations sum to %d%%, more than the whole expense", total),
		})
	}

	return errs
}
