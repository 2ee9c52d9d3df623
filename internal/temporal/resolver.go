// Package temporal resolves which tax situation and income sources
// apply on a given date. Half-open [from, to) intervals everywhere; a
// date with no covering situation is a gap that must surface to the
// caller, never a silent default.
package temporal

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// ErrNoActiveSituation is returned when no situation covers the
// queried date. Callers must force manual review rather than guess.
var ErrNoActiveSituation = errors.New("no active situation")

// Resolution is the outcome of resolving a date.
type Resolution struct {
	Situation     *model.Situation
	ActiveSources []model.IncomeSource
}

// Resolver answers point-in-time queries against a taxpayer's
// situations and income sources.
type Resolver struct {
	situations []model.Situation
	sources    []model.IncomeSource
}

// NewResolver builds a resolver. Situations are copied and sorted by
// start date; overlap checking is a configuration concern handled by
// ValidateNoOverlap, not here.
func NewResolver(situations []model.Situation, sources []model.IncomeSource) *Resolver {
	sorted := make([]model.Situation, len(situations))
	copy(sorted, situations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].From.Before(sorted[j].From)
	})
	return &Resolver{situations: sorted, sources: sources}
}

// Resolve returns the single situation covering date together with
// the income sources active on that date. A gap yields
// ErrNoActiveSituation wrapped with the date.
func (r *Resolver) Resolve(date time.Time) (Resolution, error) {
	var found *model.Situation
	for i := range r.situations {
		if r.situations[i].Contains(date) {
			found = &r.situations[i]
			break
		}
	}
	if found == nil {
		return Resolution{}, fmt.Errorf("%w for %s", ErrNoActiveSituation, date.Format("2006-01-02"))
	}

	var active []model.IncomeSource
	for i := range r.sources {
		if r.sources[i].Contains(date) {
			active = append(active, r.sources[i])
		}
	}

	return Resolution{Situation: found, ActiveSources: active}, nil
}

// ActiveSourceIDs returns just the IDs of sources valid on date, in
// configuration order. This is what the prompt context exposes to the
// upstream classifier, so it can never suggest a temporally invalid
// source.
func (r *Resolver) ActiveSourceIDs(date time.Time) []string {
	var ids []string
	for i := range r.sources {
		if r.sources[i].Contains(date) {
			ids = append(ids, r.sources[i].ID)
		}
	}
	return ids
}

// ValidateNoOverlap reports every pair of overlapping situations as a
// structured validation error. Overlaps block persistence of the
// configuration; they are never resolved by tie-breaking.
func ValidateNoOverlap(situations []model.Situation) []model.ValidationError {
	sorted := make([]model.Situation, len(situations))
	copy(sorted, situations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].From.Before(sorted[j].From)
	})

	var errs []model.ValidationError
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i].Overlaps(&sorted[i+1]) {
			errs = append(errs, model.ValidationError{
				Field: "situations",
				Code:  "overlap",
				Message: fmt.Sprintf("situation %s overlaps situation %s",
					sorted[i].ID, sorted[i+1].ID),
			})
		}
	}
	return errs
}

// Gap is an uncovered range between situations.
type Gap struct {
	From time.Time
	To   time.Time
}

// Gaps lists the uncovered ranges within [from, to). Gaps are legal
// but must be surfaced so the user can close them deliberately.
func Gaps(situations []model.Situation, from, to time.Time) []Gap {
	sorted := make([]model.Situation, len(situations))
	copy(sorted, situations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].From.Before(sorted[j].From)
	})

	var gaps []Gap
	cursor := from
	for i := range sorted {
		s := &sorted[i]
		if s.To != nil && !s.To.After(cursor) {
			continue
		}
		if s.From.After(cursor) {
			end := s.From
			if end.After(to) {
				end = to
			}
			if cursor.Before(end) {
				gaps = append(gaps, Gap{From: cursor, To: end})
			}
		}
		if s.To == nil {
			return gaps
		}
		if s.To.After(cursor) {
			cursor = *s.To
		}
		if !cursor.Before(to) {
			return gaps
		}
	}
	if cursor.Before(to) {
		gaps = append(gaps, Gap{From: cursor, To: to})
	}
	return gaps
}
