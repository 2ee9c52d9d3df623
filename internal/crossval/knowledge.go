// Package crossval compares an enforced classification against an
// independent curated vendor knowledge base and flags disagreements
// by severity. It annotates only; it never rewrites the
// classification.
package crossval

import (
	"regexp"
	"strings"
	"sync"

	"github.com/Veraticus/taxatron/internal/model"
)

// KnowledgeBase is the curated vendor lookup, keyed by sender domain
// with an optional text-pattern fallback against the vendor name.
type KnowledgeBase struct {
	byDomain map[string]model.VendorInfo
	patterns []compiledEntry
	noVAT    []*regexp.Regexp
	mu       sync.RWMutex
}

type compiledEntry struct {
	regex *regexp.Regexp
	info  model.VendorInfo
}

// NewKnowledgeBase compiles a knowledge base from entries plus a
// structurally-no-VAT pattern set. Entries with invalid patterns are
// skipped rather than failing the whole base.
func NewKnowledgeBase(entries []model.VendorInfo, noVATPatterns []string) *KnowledgeBase {
	kb := &KnowledgeBase{byDomain: make(map[string]model.VendorInfo)}
	for _, e := range entries {
		if e.Domain != "" {
			kb.byDomain[strings.ToLower(e.Domain)] = e
		}
		for _, p := range e.Patterns {
			if re, err := regexp.Compile("(?i)" + p); err == nil {
				kb.patterns = append(kb.patterns, compiledEntry{regex: re, info: e})
			}
		}
	}
	for _, p := range noVATPatterns {
		if re, err := regexp.Compile("(?i)" + p); err == nil {
			kb.noVAT = append(kb.noVAT, re)
		}
	}
	return kb
}

// Lookup finds the vendor entry for a sender domain or, failing that,
// the first text pattern matching the vendor name.
func (kb *KnowledgeBase) Lookup(domain, vendorName string) (model.VendorInfo, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if info, ok := kb.byDomain[strings.ToLower(domain)]; ok {
		return info, true
	}
	for _, e := range kb.patterns {
		if e.regex.MatchString(vendorName) {
			return e.info, true
		}
	}
	return model.VendorInfo{}, false
}

// StructurallyNoVAT reports whether the vendor text matches the
// curated set of supplies that carry no input VAT at all (insurance,
// rent, medical, bank fees). The anomaly detector uses this to catch
// VAT claimed where none can exist.
func (kb *KnowledgeBase) StructurallyNoVAT(domain, vendorName string) bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	if info, ok := kb.byDomain[strings.ToLower(domain)]; ok && info.StructurallyNoVAT {
		return true
	}
	text := domain + " " + vendorName
	for _, re := range kb.noVAT {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// DefaultKnowledgeBase returns the built-in curated vendor set.
func DefaultKnowledgeBase() *KnowledgeBase {
	return NewKnowledgeBase(defaultVendors(), defaultNoVATPatterns())
}

func defaultVendors() []model.VendorInfo {
	return []model.VendorInfo{
		{Name: "A1 Telekom", Domain: "a1.net", Category: model.CategoryTelecom},
		{Name: "Magenta", Domain: "magenta.at", Category: model.CategoryTelecom},
		{Name: "Drei", Domain: "drei.at", Category: model.CategoryTelecom},
		{Name: "Deutsche Telekom", Domain: "telekom.de", Category: model.CategoryTelecom},
		{Name: "Vodafone", Domain: "vodafone.de", Category: model.CategoryTelecom},
		{Name: "ÖBB", Domain: "oebb.at", Category: model.CategoryFull},
		{Name: "Deutsche Bahn", Domain: "bahn.de", Category: model.CategoryFull},
		{Name: "Amazon Business", Domain: "amazon.de", Category: model.CategoryFull},
		{Name: "Hervis", Domain: "hervis.at", Category: model.CategoryNone},
		{Name: "Zalando", Domain: "zalando.at", Category: model.CategoryNone},
		{Name: "Netflix", Domain: "netflix.com", Category: model.CategoryNone},
		{
			Name:              "Wiener Städtische",
			Domain:            "wienerstaedtische.at",
			Category:          model.CategoryPartial,
			StructurallyNoVAT: true,
		},
		{
			Name:              "Allianz",
			Domain:            "allianz.de",
			Category:          model.CategoryPartial,
			StructurallyNoVAT: true,
			Patterns:          []string{`\ballianz\b`},
		},
		{
			Name:     "Restaurants",
			Category: model.CategoryMeals,
			Patterns: []string{`\b(restaurant|gasthaus|wirtshaus|bistro)\b`},
		},
		{
			Name:     "Fuel stations",
			Category: model.CategoryVehicle,
			Patterns: []string{`\b(omv|shell|aral|jet tankstelle)\b`},
		},
	}
}

func defaultNoVATPatterns() []string {
	return []string{
		`\b(versicherung|insurance|allianz|uniqa|generali)\b`,
		`\b(miete|rent|vermietung|hausverwaltung)\b`,
		`\b(arzt|ordination|medical|apotheke\s+rezept)\b`,
		`\b(bank|kontoführung|account\s*fee|spesen)\b`,
	}
}
