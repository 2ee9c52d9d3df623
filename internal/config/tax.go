package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/temporal"
)

// TaxConfig is the decoded configuration the pipeline runs against.
type TaxConfig struct {
	Jurisdiction     string
	Situations       []model.Situation
	IncomeSources    []model.IncomeSource
	AllocationRules  []model.AllocationRule
	CategoryDefaults map[model.Category]string
	Version          int
}

// Raw wire shapes: dates travel as "2006-01-02" strings.
type rawSituation struct {
	ID                      string `mapstructure:"id"`
	From                    string `mapstructure:"from"`
	To                      string `mapstructure:"to"`
	VATStatus               string `mapstructure:"vat_status"`
	HomeOfficeMode          string `mapstructure:"home_office_mode"`
	VehicleClass            string `mapstructure:"vehicle_class"`
	VehicleListPriceCents   int64  `mapstructure:"vehicle_list_price_cents"`
	TelecomBusinessPercent  int    `mapstructure:"telecom_business_percent"`
	InternetBusinessPercent int    `mapstructure:"internet_business_percent"`
	VehicleBusinessPercent  int    `mapstructure:"vehicle_business_percent"`
	OwnsVehicle             bool   `mapstructure:"owns_vehicle"`
}

type rawSource struct {
	ID             string `mapstructure:"id"`
	Name           string `mapstructure:"name"`
	Kind           string `mapstructure:"kind"`
	ValidFrom      string `mapstructure:"valid_from"`
	ValidTo        string `mapstructure:"valid_to"`
	TelecomPercent *int   `mapstructure:"telecom_percent_override"`
	VehiclePercent *int   `mapstructure:"vehicle_percent_override"`
}

type rawRule struct {
	Name           string             `mapstructure:"name"`
	VendorDomain   string             `mapstructure:"vendor_domain"`
	VendorPattern  string             `mapstructure:"vendor_pattern"`
	Category       string             `mapstructure:"category"`
	Allocations    []model.Allocation `mapstructure:"allocations"`
	MinAmountCents int64              `mapstructure:"min_amount_cents"`
	ID             int                `mapstructure:"id"`
	Priority       int                `mapstructure:"priority"`
	IsRegex        bool               `mapstructure:"is_regex"`
	Disabled       bool               `mapstructure:"disabled"`
}

type rawTax struct {
	Jurisdiction     string            `mapstructure:"jurisdiction"`
	Situations       []rawSituation    `mapstructure:"situations"`
	IncomeSources    []rawSource       `mapstructure:"income_sources"`
	AllocationRules  []rawRule         `mapstructure:"allocation_rules"`
	CategoryDefaults map[string]string `mapstructure:"category_defaults"`
	Version          int               `mapstructure:"version"`
}

// Load decodes the tax configuration from the given viper instance
// (under the "tax" key).
func Load(v *viper.Viper) (*TaxConfig, error) {
	var raw rawTax
	if err := v.UnmarshalKey("tax", &raw); err != nil {
		return nil, fmt.Errorf("failed to decode tax configuration: %w", err)
	}
	if raw.Jurisdiction == "" {
		return nil, fmt.Errorf("%w: tax.jurisdiction is required", common.ErrMissingConfig)
	}

	cfg := &TaxConfig{
		Jurisdiction:     raw.Jurisdiction,
		Version:          raw.Version,
		CategoryDefaults: make(map[model.Category]string, len(raw.CategoryDefaults)),
	}

	for _, rs := range raw.Situations {
		s, err := rs.toModel(raw.Jurisdiction)
		if err != nil {
			return nil, err
		}
		cfg.Situations = append(cfg.Situations, s)
	}
	for _, rs := range raw.IncomeSources {
		src, err := rs.toModel()
		if err != nil {
			return nil, err
		}
		cfg.IncomeSources = append(cfg.IncomeSources, src)
	}
	for _, rr := range raw.AllocationRules {
		cfg.AllocationRules = append(cfg.AllocationRules, model.AllocationRule{
			ID:             rr.ID,
			Name:           rr.Name,
			VendorDomain:   rr.VendorDomain,
			VendorPattern:  rr.VendorPattern,
			Category:       model.Category(rr.Category),
			Allocations:    rr.Allocations,
			MinAmountCents: rr.MinAmountCents,
			Priority:       rr.Priority,
			IsActive:       !rr.Disabled,
			IsRegex:        rr.IsRegex,
		})
	}
	for cat, sourceID := range raw.CategoryDefaults {
		cfg.CategoryDefaults[model.Category(cat)] = sourceID
	}

	return cfg, nil
}

func (rs rawSituation) toModel(jurisdictionCode string) (model.Situation, error) {
	from, err := parseDate(rs.From, "situation "+rs.ID+" from")
	if err != nil {
		return model.Situation{}, err
	}
	to, err := parseOptionalDate(rs.To, "situation "+rs.ID+" to")
	if err != nil {
		return model.Situation{}, err
	}
	return model.Situation{
		ID:                      rs.ID,
		Jurisdiction:            jurisdictionCode,
		From:                    from,
		To:                      to,
		VATStatus:               model.VATStatus(rs.VATStatus),
		HomeOfficeMode:          rs.HomeOfficeMode,
		VehicleClass:            model.VehicleClass(rs.VehicleClass),
		VehicleListPriceCents:   rs.VehicleListPriceCents,
		TelecomBusinessPercent:  rs.TelecomBusinessPercent,
		InternetBusinessPercent: rs.InternetBusinessPercent,
		VehicleBusinessPercent:  rs.VehicleBusinessPercent,
		OwnsVehicle:             rs.OwnsVehicle,
	}, nil
}

func (rs rawSource) toModel() (model.IncomeSource, error) {
	from, err := parseDate(rs.ValidFrom, "income source "+rs.ID+" valid_from")
	if err != nil {
		return model.IncomeSource{}, err
	}
	to, err := parseOptionalDate(rs.ValidTo, "income source "+rs.ID+" valid_to")
	if err != nil {
		return model.IncomeSource{}, err
	}
	return model.IncomeSource{
		ID:                     rs.ID,
		Name:                   rs.Name,
		Kind:                   model.IncomeSourceKind(rs.Kind),
		ValidFrom:              from,
		ValidTo:                to,
		TelecomPercentOverride: rs.TelecomPercent,
		VehiclePercentOverride: rs.VehiclePercent,
	}, nil
}

func parseDate(value, what string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date for %s: %q", common.ErrInvalidConfig, what, value)
	}
	return t.UTC(), nil
}

func parseOptionalDate(value, what string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value, what)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the whole configuration against the jurisdiction's
// rules. Validation failures block persistence of the offending
// entities; they are returned structured, never thrown.
func (c *TaxConfig) Validate(registry *jurisdiction.Registry) []model.ValidationError {
	rules, err := registry.Get(c.Jurisdiction)
	if err != nil {
		return []model.ValidationError{{
			Field:   "jurisdiction",
			Code:    "unsupported",
			Message: err.Error(),
		}}
	}

	var errs []model.ValidationError
	for _, s := range c.Situations {
		errs = append(errs, rules.ValidateSituation(s)...)
	}
	errs = append(errs, temporal.ValidateNoOverlap(c.Situations)...)

	for _, src := range c.IncomeSources {
		errs = append(errs, rules.ValidateIncomeSource(src)...)
	}

	sourceIDs := make(map[string]bool, len(c.IncomeSources))
	for _, src := range c.IncomeSources {
		sourceIDs[src.ID] = true
	}
	for _, rule := range c.AllocationRules {
		errs = append(errs, rules.ValidateAllocations(rule.Allocations)...)
		for i, alloc := range rule.Allocations {
			if !sourceIDs[alloc.SourceID] {
				errs = append(errs, model.ValidationError{
					Field:   fmt.Sprintf("allocation_rules[%s].allocations[%d].source_id", rule.Name, i),
					Code:    "unknown_source",
					Message: fmt.Sprintf("rule %q allocates to unknown source %q", rule.Name, alloc.SourceID),
				})
			}
		}
	}
	for cat, sourceID := range c.CategoryDefaults {
		if !cat.Valid() {
			errs = append(errs, model.ValidationError{
				Field:   "category_defaults",
				Code:    "invalid_value",
				Message: fmt.Sprintf("unknown category %q", cat),
			})
		}
		if !sourceIDs[sourceID] {
			errs = append(errs, model.ValidationError{
				Field:   "category_defaults." + string(cat),
				Code:    "unknown_source",
				Message: fmt.Sprintf("default for %q names unknown source %q", cat, sourceID),
			})
		}
	}

	return errs
}
