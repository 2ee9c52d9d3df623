// Package allocation assigns validated expenses to income sources
// through a fixed-priority waterfall. Every decision carries an audit
// trail naming the tier that fired and the alternatives considered.
package allocation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/taxatron/internal/model"
)

// ruleMatcher evaluates allocation rules against an expense.
type ruleMatcher struct {
	compiled map[int]*regexp.Regexp
	rules    []model.AllocationRule
}

func newRuleMatcher(rules []model.AllocationRule) *ruleMatcher {
	m := &ruleMatcher{
		rules:    rules,
		compiled: make(map[int]*regexp.Regexp),
	}
	for _, rule := range rules {
		if rule.IsRegex && rule.VendorPattern != "" {
			if re, err := regexp.Compile("(?i)" + rule.VendorPattern); err == nil {
				m.compiled[rule.ID] = re
			}
		}
	}
	return m
}

// match returns the active rules matching the expense, highest
// priority first.
func (m *ruleMatcher) match(exp model.Expense, cat model.Category) []model.AllocationRule {
	var matches []model.AllocationRule
	for _, rule := range m.rules {
		if !rule.IsActive {
			continue
		}
		if m.matchesRule(exp, cat, rule) {
			matches = append(matches, rule)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})
	return matches
}

func (m *ruleMatcher) matchesRule(exp model.Expense, cat model.Category, rule model.AllocationRule) bool {
	if rule.MinAmountCents > 0 && exp.AmountCents < rule.MinAmountCents {
		return false
	}

	// At least one vendor or category predicate must be configured
	// and match.
	matched := false
	switch {
	case rule.VendorDomain != "":
		if !strings.EqualFold(rule.VendorDomain, exp.VendorDomain) {
			return false
		}
		matched = true
	case rule.VendorPattern != "":
		if !m.matchesPattern(exp, rule) {
			return false
		}
		matched = true
	case rule.Category != "":
		if rule.Category != cat {
			return false
		}
		matched = true
	}
	return matched
}

func (m *ruleMatcher) matchesPattern(exp model.Expense, rule model.AllocationRule) bool {
	if rule.IsRegex {
		re, ok := m.compiled[rule.ID]
		return ok && (re.MatchString(exp.VendorName) || re.MatchString(exp.VendorDomain))
	}
	needle := strings.ToLower(rule.VendorPattern)
	return strings.Contains(strings.ToLower(exp.VendorName), needle) ||
		strings.Contains(strings.ToLower(exp.VendorDomain), needle)
}
