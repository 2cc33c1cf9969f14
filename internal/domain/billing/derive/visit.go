package derive

import "time"

// DefaultNewVisitGapDays is the gap after which a returning patient is billed
// as a new visit.
const DefaultNewVisitGapDays = 90

// ClassifyVisit decides new visit versus follow-up. previous is the most
// recent completed appointment of the same patient strictly before visitAt,
// or nil if there is none.
func ClassifyVisit(flaggedNew bool, visitAt time.Time, previous *time.Time, gapDays int) Visit {
	if gapDays <= 0 {
		gapDays = DefaultNewVisitGapDays
	}
	if flaggedNew {
		return Visit{IsNew: true, Reason: VisitFlagged, PreviousVisit: previous}
	}
	if previous == nil {
		return Visit{IsNew: true, Reason: VisitFirst}
	}
	days := daysBetween(*previous, visitAt)
	if days >= gapDays {
		return Visit{IsNew: true, Reason: VisitGap, PreviousVisit: previous, GapDays: days}
	}
	return Visit{Reason: VisitFollowUp, PreviousVisit: previous, GapDays: days}
}

// daysBetween counts calendar days, so 23:00 to 01:00 the next day is one.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
