package allocation

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/taxatron/internal/jurisdiction"
	"github.com/Veraticus/taxatron/internal/model"
)

// Input carries everything one allocation decision needs. The active
// source list is already filtered to the invoice date by the temporal
// resolver; this package never sees sources outside their validity
// window.
type Input struct {
	Expense        model.Expense
	Category       model.Category
	ActiveSources  []model.IncomeSource
	Suggestion     *model.Suggestion
	ManualOverride []model.Allocation
	VendorHistory  model.VendorHistory
}

// Engine runs the allocation waterfall: manual override, configured
// rule, upstream suggestion, category default, heuristic, review
// fallback. First match wins; each tier is immutable relative to the
// ones below it.
type Engine struct {
	matcher          *ruleMatcher
	categoryDefaults map[model.Category]string
	rules            jurisdiction.Rules
}

// NewEngine builds an allocation engine from the configured rules and
// the category-to-source default map.
func NewEngine(allocRules []model.AllocationRule, categoryDefaults map[model.Category]string, rules jurisdiction.Rules) *Engine {
	if categoryDefaults == nil {
		categoryDefaults = make(map[model.Category]string)
	}
	return &Engine{
		matcher:          newRuleMatcher(allocRules),
		categoryDefaults: categoryDefaults,
		rules:            rules,
	}
}

// Assign walks the waterfall and returns the assignment with its
// audit detail.
func (e *Engine) Assign(in Input) model.Assignment {
	if len(in.ManualOverride) > 0 {
		return model.Assignment{
			Allocations: in.ManualOverride,
			Tier:        model.TierManualOverride,
			Status:      model.AssignmentManual,
			Confidence:  1.0,
			Reason:      "explicit manual decision",
		}
	}

	if a, ok := e.assignFromRules(in); ok {
		return a
	}

	if a, ok := e.assignFromSuggestion(in); ok {
		return a
	}

	if a, ok := e.assignFromCategoryDefault(in); ok {
		return a
	}

	return e.assignHeuristically(in)
}

func (e *Engine) assignFromRules(in Input) (model.Assignment, bool) {
	matches := e.matcher.match(in.Expense, in.Category)
	for i, rule := range matches {
		if errs := e.rules.ValidateAllocations(rule.Allocations); len(errs) > 0 {
			slog.Warn("Skipping allocation rule with invalid split",
				"rule", rule.Name, "errors", len(errs))
			continue
		}
		// A rule may outlive the sources it allocates to; allocating
		// to a source outside its validity window would misstate who
		// earned the expense.
		if stale := inactiveTarget(rule.Allocations, in.ActiveSources); stale != "" {
			slog.Warn("Skipping allocation rule targeting inactive source",
				"rule", rule.Name, "source", stale,
				"invoice_date", in.Expense.InvoiceDate)
			continue
		}
		var alternatives []string
		for j, other := range matches {
			if j != i {
				alternatives = append(alternatives, "rule:"+other.Name)
			}
		}
		return model.Assignment{
			Allocations:  rule.Allocations,
			Tier:         model.TierRule,
			Status:       model.AssignmentAssigned,
			Confidence:   0.95,
			Reason:       fmt.Sprintf("allocation rule %q matched", rule.Name),
			Alternatives: alternatives,
		}, true
	}
	return model.Assignment{}, false
}

// assignFromSuggestion applies the upstream source suggestion, but
// only when the suggested ID is actually active on the invoice date.
// A hallucinated or stale ID is treated as no suggestion at all.
func (e *Engine) assignFromSuggestion(in Input) (model.Assignment, bool) {
	if in.Suggestion == nil || in.Suggestion.SourceID == "" {
		return model.Assignment{}, false
	}
	for _, src := range in.ActiveSources {
		if src.ID == in.Suggestion.SourceID {
			confidence := in.Suggestion.Confidence
			if confidence == 0 {
				confidence = 0.7
			}
			return model.Assignment{
				Allocations:  []model.Allocation{{SourceID: src.ID, Percent: 100}},
				Tier:         model.TierSuggestion,
				Status:       model.AssignmentAssigned,
				Confidence:   confidence,
				Reason:       fmt.Sprintf("upstream suggested active source %q", src.Name),
				Alternatives: otherSourceIDs(in.ActiveSources, src.ID),
			}, true
		}
	}
	slog.Debug("Upstream suggested a source not active on invoice date",
		"suggested", in.Suggestion.SourceID,
		"invoice_date", in.Expense.InvoiceDate)
	return model.Assignment{}, false
}

func (e *Engine) assignFromCategoryDefault(in Input) (model.Assignment, bool) {
	sourceID, ok := e.categoryDefaults[in.Category]
	if !ok {
		return model.Assignment{}, false
	}
	for _, src := range in.ActiveSources {
		if src.ID == sourceID {
			return model.Assignment{
				Allocations:  []model.Allocation{{SourceID: src.ID, Percent: 100}},
				Tier:         model.TierCategoryDefault,
				Status:       model.AssignmentAssigned,
				Confidence:   0.8,
				Reason:       fmt.Sprintf("category %q defaults to source %q", in.Category, src.Name),
				Alternatives: otherSourceIDs(in.ActiveSources, src.ID),
			}, true
		}
	}
	return model.Assignment{}, false
}

func (e *Engine) assignHeuristically(in Input) model.Assignment {
	if len(in.ActiveSources) == 1 {
		src := in.ActiveSources[0]
		return model.Assignment{
			Allocations: []model.Allocation{{SourceID: src.ID, Percent: 100}},
			Tier:        model.TierHeuristic,
			Status:      model.AssignmentAssigned,
			Confidence:  0.9,
			Reason:      fmt.Sprintf("%q is the only source active on the invoice date", src.Name),
		}
	}

	if unanimous := in.VendorHistory.UnanimousSource(); unanimous != "" {
		for _, src := range in.ActiveSources {
			if src.ID == unanimous {
				return model.Assignment{
					Allocations: []model.Allocation{{SourceID: src.ID, Percent: 100}},
					Tier:        model.TierHeuristic,
					Status:      model.AssignmentAssigned,
					Confidence:  0.6,
					Reason: fmt.Sprintf("vendor's recent invoices were unanimously assigned to %q",
						src.Name),
					Alternatives: otherSourceIDs(in.ActiveSources, src.ID),
				}
			}
		}
	}

	return model.Assignment{
		Tier:         model.TierReview,
		Status:       model.AssignmentReviewNeeded,
		Confidence:   0,
		Reason:       fmt.Sprintf("%d sources active, no rule or history decides between them", len(in.ActiveSources)),
		Alternatives: otherSourceIDs(in.ActiveSources, ""),
	}
}

// inactiveTarget returns the first allocation target not in the
// active source set, or "" when every target is active.
func inactiveTarget(allocs []model.Allocation, sources []model.IncomeSource) string {
	for _, alloc := range allocs {
		active := false
		for _, src := range sources {
			if src.ID == alloc.SourceID {
				active = true
				break
			}
		}
		if !active {
			return alloc.SourceID
		}
	}
	return ""
}

func otherSourceIDs(sources []model.IncomeSource, except string) []string {
	var ids []string
	for _, src := range sources {
		if src.ID != except {
			ids = append(ids, src.ID)
		}
	}
	return ids
}
