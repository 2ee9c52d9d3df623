package jurisdiction

import (
	"fmt"
	"sort"
	"strings"
)

// UnsupportedJurisdictionError is returned when no rule provider is
// registered for a code. It carries the supported set so callers can
// surface it to the user.
type UnsupportedJurisdictionError struct {
	Code      string
	Supported []string
}

func (e *UnsupportedJurisdictionError) Error() string {
	return fmt.Sprintf("unsupported jurisdiction %q (supported: %s)",
		e.Code, strings.Join(e.Supported, ", "))
}

// Registry maps jurisdiction codes to rule providers.
type Registry struct {
	providers map[string]Rules
}

// NewRegistry returns a registry with all built-in jurisdictions
// registered.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Rules)}
	r.Register(NewAustria())
	r.Register(NewGermany())
	return r
}

// Register adds a rule provider, keyed by its upper-cased code.
func (r *Registry) Register(rules Rules) {
	r.providers[strings.ToUpper(rules.Code())] = rules
}

// Get returns the rule provider for a code, or an
// UnsupportedJurisdictionError listing the supported set.
func (r *Registry) Get(code string) (Rules, error) {
	rules, ok := r.providers[strings.ToUpper(code)]
	if !ok {
		return nil, &UnsupportedJurisdictionError{
			Code:      code,
			Supported: r.Supported(),
		}
	}
	return rules, nil
}

// Supported returns the registered jurisdiction codes, sorted.
func (r *Registry) Supported() []string {
	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
