package model

import (
	"fmt"
	"time"
)

// DefaultRefreshWindow is the assumed duration of a refresh operation whose
// planned end time was left open.  Conflict detection must never run against
// an unbounded interval, so a missing end is defaulted to start plus this
// window.  The constant is applied in exactly one place (Normalized) so the
// policy cannot silently diverge between call sites.
const DefaultRefreshWindow = 2 * time.Hour

// Interval is a half-open time range [Start, End).  The half-open convention
// means two intervals that merely touch (one ends exactly when the other
// starts) do not overlap.  All conflict detection in this service is built
// on top of this type.
//
// Fields:
//  Start – inclusive beginning of the range.
//  End   – exclusive end of the range; must be after Start.
type Interval struct {
	Start time.Time `json:"start"` // inclusive
	End   time.Time `json:"end"`   // exclusive
}

// NewInterval builds an interval from start and end times.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Validate checks the End > Start invariant.  A zero End is rejected as
// well; callers that allow an open-ended plan must call Normalized before
// validating.  The returned error is a *ValidationError suitable for
// surfacing verbatim to the user.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() {
		return NewValidationError("start time is required")
	}
	if !iv.End.After(iv.Start) {
		return NewValidationError(fmt.Sprintf("end %s must be after start %s",
			iv.End.UTC().Format(time.RFC3339), iv.Start.UTC().Format(time.RFC3339)))
	}
	return nil
}

// Normalized returns the interval with a missing end time defaulted to
// Start + DefaultRefreshWindow.  Intervals that already carry an end are
// returned unchanged.
func (iv Interval) Normalized() Interval {
	if iv.End.IsZero() {
		iv.End = iv.Start.Add(DefaultRefreshWindow)
	}
	return iv
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect.  Touching
// endpoints ([0,10) vs [10,20)) do not count as an overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Overlap returns the intersection of two intervals and true when they
// overlap.  When they do not, the zero Interval and false are returned.
func (iv Interval) Overlap(other Interval) (Interval, bool) {
	if !iv.Overlaps(other) {
		return Interval{}, false
	}
	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	return Interval{Start: start, End: end}, true
}

// OverlapDuration returns the length of the intersection of two intervals,
// or zero when they do not overlap.
func (iv Interval) OverlapDuration(other Interval) time.Duration {
	ov, ok := iv.Overlap(other)
	if !ok {
		return 0
	}
	return ov.Duration()
}
