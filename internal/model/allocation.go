package model

import "time"

// Allocation assigns a percentage of one expense to one income source.
type Allocation struct {
	SourceID string `json:"source_id" mapstructure:"source_id"`
	Percent  int    `json:"percent" mapstructure:"percent"`
}

// AllocationRule maps a vendor match to a fixed allocation split.
// Matching is by vendor domain, an optional merchant pattern, or a
// deductibility category, optionally gated by a minimum amount.
type AllocationRule struct {
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Name           string       `json:"name"`
	VendorDomain   string       `json:"vendor_domain,omitempty"`
	VendorPattern  string       `json:"vendor_pattern,omitempty"`
	Category       Category     `json:"category,omitempty"`
	Allocations    []Allocation `json:"allocations"`
	MinAmountCents int64        `json:"min_amount_cents,omitempty"`
	ID             int          `json:"id"`
	Priority       int          `json:"priority"`
	IsActive       bool         `json:"is_active"`
	IsRegex        bool         `json:"is_regex"`
}

// AllocationTier identifies which waterfall tier produced an
// assignment. Tiers are strictly ordered; an earlier tier's decision
// is never revisited by a later one.
type AllocationTier string

// Waterfall tiers, highest priority first.
const (
	TierManualOverride  AllocationTier = "manual_override"
	TierRule            AllocationTier = "rule"
	TierSuggestion      AllocationTier = "suggestion"
	TierCategoryDefault AllocationTier = "category_default"
	TierHeuristic       AllocationTier = "heuristic"
	TierReview          AllocationTier = "review"
)

// AssignmentStatus is derived from the assignment itself and computed
// on read; it is stored only as part of the serialized assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentAssigned     AssignmentStatus = "assigned"
	AssignmentReviewNeeded AssignmentStatus = "review_needed"
	AssignmentManual       AssignmentStatus = "manual"
)

// Assignment is the allocation engine's decision for one expense,
// including the audit detail a reviewer needs to see why the engine
// chose what it chose.
type Assignment struct {
	Allocations  []Allocation     `json:"allocations,omitempty"`
	Tier         AllocationTier   `json:"tier"`
	Status       AssignmentStatus `json:"status"`
	Reason       string           `json:"reason"`
	Alternatives []string         `json:"alternatives,omitempty"`
	Confidence   float64          `json:"confidence"`
}

// TotalPercent sums the allocation percentages.
func (a *Assignment) TotalPercent() int {
	total := 0
	for _, alloc := range a.Allocations {
		total += alloc.Percent
	}
	return total
}
