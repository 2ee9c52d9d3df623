package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/model"
)

const sampleYAML = `
tax:
  version: 1
  jurisdiction: AT
  situations:
    - id: s1
      from: "2024-01-01"
      to: "2024-07-01"
      vat_status: no_vat_regime
      telecom_business_percent: 60
    - id: s2
      from: "2024-07-01"
      vat_status: standard
      telecom_business_percent: 60
      owns_vehicle: true
      vehicle_class: ice
      vehicle_list_price_cents: 4000000
      vehicle_business_percent: 70
  income_sources:
    - id: freelance
      name: Freelance consulting
      kind: freelance
      valid_from: "2024-01-01"
    - id: trade
      name: Webshop
      kind: trade
      valid_from: "2024-01-01"
      valid_to: "2024-10-01"
      telecom_percent_override: 40
  allocation_rules:
    - id: 1
      name: a1-split
      vendor_domain: a1.net
      priority: 10
      allocations:
        - source_id: freelance
          percent: 60
        - source_id: trade
          percent: 40
    - id: 2
      name: retired
      vendor_domain: old.example
      disabled: true
      allocations:
        - source_id: freelance
          percent: 100
  category_defaults:
    telecom: freelance
`

func loadYAML(t *testing.T, yaml string) *TaxConfig {
	t.Helper()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := loadYAML(t, sampleYAML)

	assert.Equal(t, "AT", cfg.Jurisdiction)
	assert.Equal(t, 1, cfg.Version)

	require.Len(t, cfg.Situations, 2)
	s1 := cfg.Situations[0]
	assert.Equal(t, "AT", s1.Jurisdiction, "jurisdiction is stamped onto every situation")
	assert.Equal(t, model.VATStatusNoVATRegime, s1.VATStatus)
	require.NotNil(t, s1.To)
	assert.True(t, s1.To.Equal(cfg.Situations[1].From), "half-open intervals line up back to back")
	assert.Nil(t, cfg.Situations[1].To)
	assert.Equal(t, int64(4_000_000), cfg.Situations[1].VehicleListPriceCents)

	require.Len(t, cfg.IncomeSources, 2)
	trade := cfg.IncomeSources[1]
	require.NotNil(t, trade.ValidTo)
	require.NotNil(t, trade.TelecomPercentOverride)
	assert.Equal(t, 40, *trade.TelecomPercentOverride)

	require.Len(t, cfg.AllocationRules, 2)
	assert.True(t, cfg.AllocationRules[0].IsActive)
	assert.False(t, cfg.AllocationRules[1].IsActive, "disabled in config means inactive")
	assert.Equal(t, 100, cfg.AllocationRules[0].Allocations[0].Percent+cfg.AllocationRules[0].Allocations[1].Percent)

	assert.Equal(t, "freelance", cfg.CategoryDefaults[model.CategoryTelecom])
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "missing jurisdiction",
			yaml:    "tax:\n  situations: []\n",
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "bad situation date",
			wantErr: common.ErrInvalidConfig,
			yaml: `
tax:
  jurisdiction: AT
  situations:
    - id: s1
      from: "01.01.2024"
      vat_status: standard
`,
		},
		{
			name:    "bad source date",
			wantErr: common.ErrInvalidConfig,
			yaml: `
tax:
  jurisdiction: AT
  income_sources:
    - id: x
      name: X
      kind: freelance
      valid_from: "yesterday"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.SetConfigType("yaml")
			require.NoError(t, v.ReadConfig(strings.NewReader(tt.yaml)))

			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	registry := jurisdiction.NewRegistry()

	t.Run("sample config is valid", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		assert.Empty(t, cfg.Validate(registry))
	})

	t.Run("unsupported jurisdiction", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		cfg.Jurisdiction = "CH"
		errs := cfg.Validate(registry)
		require.Len(t, errs, 1)
		assert.Equal(t, "unsupported", errs[0].Code)
	})

	t.Run("overlapping situations are rejected", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		cfg.Situations[1].From = cfg.Situations[0].From.AddDate(0, 3, 0)
		errs := cfg.Validate(registry)
		require.Len(t, errs, 1)
		assert.Equal(t, "overlap", errs[0].Code)
	})

	t.Run("rule allocating to unknown source", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		cfg.AllocationRules[0].Allocations[0].SourceID = "ghost"
		errs := cfg.Validate(registry)
		require.Len(t, errs, 1)
		assert.Equal(t, "unknown_source", errs[0].Code)
	})

	t.Run("category default naming unknown source", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		cfg.CategoryDefaults[model.CategoryMeals] = "ghost"
		errs := cfg.Validate(registry)
		require.Len(t, errs, 1)
		assert.Equal(t, "unknown_source", errs[0].Code)
	})

	t.Run("german home office mode fails under AT rules", func(t *testing.T) {
		cfg := loadYAML(t, sampleYAML)
		cfg.Situations[0].HomeOfficeMode = "homeoffice_pauschale"
		errs := cfg.Validate(registry)
		require.Len(t, errs, 1)
		assert.Equal(t, "invalid_value", errs[0].Code)
	})
}
