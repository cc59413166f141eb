package timeoff

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/hr-engine/generic"
)

// Candidate is the request being checked for conflicts.
type Candidate struct {
	Period          generic.Period
	Days            decimal.Decimal
	Code            Code
	DayType         DayType
	HalfDayPosition HalfDayPosition
}

// DetectConflicts returns every calendar day that the candidate shares with
// an existing pending or approved request, sorted and without duplicates.
//
// Day type, half-day slot and leave type never clear a conflict: a half day
// on a date that already holds any other leave, including the opposite slot,
// is a conflict. Boundary half days of multi-day requests occupy their date.
func DetectConflicts(candidate Candidate, existing []LeaveRequest) []generic.TimePoint {
	seen := make(map[generic.TimePoint]struct{})
	var dates []generic.TimePoint

	for _, req := range existing {
		if !req.Status.Holds() {
			continue
		}
		shared, ok := candidate.Period.Intersect(req.Period())
		if !ok {
			continue
		}
		for _, day := range shared.Days() {
			if _, dup := seen[day]; dup {
				continue
			}
			seen[day] = struct{}{}
			dates = append(dates, day)
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
