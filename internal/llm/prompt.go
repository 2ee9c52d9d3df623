package llm

import (
	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/model"
)

// PromptContext is exactly what the upstream classifier gets to see:
// the active situation's relevant fields and the source IDs valid on
// the invoice date. The full historical source set is deliberately
// withheld so the collaborator cannot suggest a temporally invalid
// ID.
type PromptContext struct {
	Jurisdiction           string             `json:"jurisdiction"`
	VATStatus              model.VATStatus    `json:"vat_status"`
	VehicleClass           model.VehicleClass `json:"vehicle_class,omitempty"`
	HomeOfficeMode         string             `json:"home_office_mode,omitempty"`
	Instructions           string             `json:"instructions"`
	Categories             []string           `json:"categories"`
	ActiveSourceIDs        []string           `json:"active_source_ids"`
	TelecomBusinessPercent int                `json:"telecom_business_percent"`
	OwnsVehicle            bool               `json:"owns_vehicle"`
}

// BuildPromptContext assembles the context for one invoice date.
// Jurisdiction knowledge comes from the rule provider, not from
// hand-maintained prompt text.
func BuildPromptContext(s model.Situation, activeSourceIDs []string, rules jurisdiction.Rules) PromptContext {
	categories := make([]string, 0, len(model.AllCategories()))
	for _, cat := range model.AllCategories() {
		categories = append(categories, string(cat))
	}
	return PromptContext{
		Jurisdiction:           s.Jurisdiction,
		VATStatus:              s.VATStatus,
		OwnsVehicle:            s.OwnsVehicle,
		VehicleClass:           s.VehicleClass,
		TelecomBusinessPercent: s.TelecomBusinessPercent,
		HomeOfficeMode:         s.HomeOfficeMode,
		Instructions:           rules.ClassifierInstructions(),
		Categories:             categories,
		ActiveSourceIDs:        activeSourceIDs,
	}
}
