// Package availability turns weekly rules into candidate slots and decides whether an
// interval can still be booked. Every function reads through a store.Reader so a
// caller controls the snapshot.
package availability

import (
	"iter"
	"slices"

	"venuebook/backend/internal/domain"
)

// Slots yields candidate intervals of durationMinutes for each window independently,
// starting at the window start and advancing by stepMinutes. A candidate whose end
// would pass the window end is not emitted. stepMinutes <= 0 means durationMinutes.
// When windows overlap, candidates from all windows come out in start order and exact
// duplicates are emitted once.
//
// The sequence is restartable: ranging over it twice yields the same intervals.
func Slots(windows []domain.Interval, durationMinutes, stepMinutes int) iter.Seq[domain.Interval] {
	if stepMinutes <= 0 {
		stepMinutes = durationMinutes
	}
	var candidates []domain.Interval
	if durationMinutes > 0 {
		for _, w := range windows {
			if !w.Valid() {
				continue
			}
			for start := w.Start; start+domain.TimeOfDay(durationMinutes) <= w.End; start += domain.TimeOfDay(stepMinutes) {
				candidates = append(candidates, domain.Interval{Start: start, End: start + domain.TimeOfDay(durationMinutes)})
			}
		}
	}
	slices.SortFunc(candidates, compareIntervals)
	candidates = slices.Compact(candidates)

	return func(yield func(domain.Interval) bool) {
		for _, iv := range candidates {
			if !yield(iv) {
				return
			}
		}
	}
}

func compareIntervals(a, b domain.Interval) int {
	if a.Start != b.Start {
		return int(a.Start - b.Start)
	}
	return int(a.End - b.End)
}

// Covered reports whether iv lies inside the union of windows. Adjacent or overlapping
// windows cover the gap between them; this is a continuous check, independent of any
// slot grid.
func Covered(iv domain.Interval, windows []domain.Interval) bool {
	if !iv.Valid() {
		return false
	}
	ordered := slices.Clone(windows)
	slices.SortFunc(ordered, func(a, b domain.Interval) int { return int(a.Start - b.Start) })

	reach := iv.Start
	for _, w := range ordered {
		if !w.Valid() || w.End <= reach {
			continue
		}
		if w.Start > reach {
			return false
		}
		reach = w.End
		if reach >= iv.End {
			return true
		}
	}
	return false
}

func ruleWindows(rules []domain.AvailabilityRule) []domain.Interval {
	out := make([]domain.Interval, 0, len(rules))
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		out = append(out, r.Window())
	}
	return out
}
