// Package bucketing implements the Time-Interval Bucketer (component D):
// mapping absolute submission timestamps to integer bucket indices relative
// to a chosen anchor date at a chosen granularity, calendar-aware for
// weeks and months. Standard library only (time.Time/time.AddDate) — no
// pack dependency offers calendar-aware bucket arithmetic; this is exactly
// the kind of small pure-logic component the teacher writes directly
// rather than importing a library for.
package bucketing

import (
	"time"

	"github.com/proanalytics/core/internal/domain"
)

// AnchorResolver resolves a FilterContext's Anchor to a concrete date for a
// given patient, using whatever Store lookups the caller already performed
// (diagnosis/treatment dates). Returns ok=false when the anchor's referenced
// entity or its date is missing (domain.KindNoAnchor at the caller).
type AnchorResolver struct {
	RegistrationDate time.Time
	DiagnosisDate    *time.Time
	TreatmentDate    *time.Time
}

// Resolve returns the anchor date for anchor, or ok=false if unavailable.
func (r AnchorResolver) Resolve(anchor domain.Anchor) (time.Time, bool) {
	switch anchor.Kind {
	case domain.AnchorRegistration:
		return r.RegistrationDate, !r.RegistrationDate.IsZero()
	case domain.AnchorDiagnosis:
		if r.DiagnosisDate == nil {
			return time.Time{}, false
		}
		return *r.DiagnosisDate, true
	case domain.AnchorTreatmentStart:
		if r.TreatmentDate == nil {
			return time.Time{}, false
		}
		return *r.TreatmentDate, true
	default:
		return time.Time{}, false
	}
}

// BucketIndex computes floor((t - anchor) / granularity) using
// calendar-aware arithmetic for WEEK and MONTH. A negative result (t before
// anchor) is returned as-is; callers apply the negative-interval exclusion
// policy (spec.md §4.D) by discarding indices < 0.
func BucketIndex(anchor, t time.Time, granularity domain.Granularity) int {
	anchorDay := truncateToDay(anchor)
	day := truncateToDay(t)

	switch granularity {
	case domain.GranularityDay:
		return int(day.Sub(anchorDay).Hours() / 24)
	case domain.GranularityWeek:
		days := int(day.Sub(anchorDay).Hours() / 24)
		return floorDiv(days, 7)
	case domain.GranularityMonth:
		return calendarMonthsBetween(anchorDay, day)
	default:
		return 0
	}
}

// Window returns the [anchor, anchor + maxIntervals*granularity] upper
// bound date used to clip the submission universe, or nil when
// maxIntervals is unset (no upper clip beyond any explicit
// upper_bound_date already applied by the caller).
func Window(anchor time.Time, granularity domain.Granularity, maxIntervals *int) *time.Time {
	if maxIntervals == nil {
		return nil
	}
	n := *maxIntervals
	var upper time.Time
	switch granularity {
	case domain.GranularityDay:
		upper = anchor.AddDate(0, 0, n)
	case domain.GranularityWeek:
		upper = anchor.AddDate(0, 0, n*7)
	case domain.GranularityMonth:
		upper = anchor.AddDate(0, n, 0)
	default:
		upper = anchor
	}
	return &upper
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// calendarMonthsBetween counts whole calendar months from anchor to t,
// floor-rounded by day-of-month, so that e.g. Jan 31 → Mar 1 is 1 month,
// not 2, and a date before the anchor's day-of-month in the target month
// rounds down.
func calendarMonthsBetween(anchor, t time.Time) int {
	ay, am, ad := anchor.Date()
	ty, tm, td := t.Date()
	months := (ty-ay)*12 + int(tm) - int(am)
	if td < ad {
		months--
	}
	return months
}
