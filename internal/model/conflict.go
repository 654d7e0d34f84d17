package model

import "time"

// Conflict types.  DOUBLE_BOOKING is two reservations contending for the
// same resource; the other two are a refresh intent overlapping an active
// reservation, with DOWNTIME_DURING_BOOKING reserved for refreshes that take
// the target down entirely.
const (
	ConflictDoubleBooking         = "DOUBLE_BOOKING"
	ConflictRefreshDuringBooking  = "REFRESH_DURING_BOOKING"
	ConflictDowntimeDuringBooking = "DOWNTIME_DURING_BOOKING"
)

// Conflict severities, ordered weakest to strongest.
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Resolution statuses.  A conflict starts UNRESOLVED and is moved exactly
// once to one of the terminal resolutions; re-resolution is rejected so the
// audit trail stays append-only.
const (
	ResolutionUnresolved       = "UNRESOLVED"
	ResolutionAcknowledged     = "ACKNOWLEDGED"
	ResolutionBookingMoved     = "BOOKING_MOVED"
	ResolutionRefreshMoved     = "REFRESH_MOVED"
	ResolutionOverrideApproved = "OVERRIDE_APPROVED"
	ResolutionDismissed        = "DISMISSED"
)

// Conflict is the persisted output of a detector run: a temporal overlap
// between a reservation and either another reservation or a refresh intent.
// It carries its own resolution state, independent of the computation that
// produced it.
//
// Fields:
//  ID              – primary key identifier (zero until persisted).
//  IntentID        – owning refresh intent, when produced by the refresh
//                    detector (nil for double bookings).
//  ReservationID   – candidate reservation, when produced by the booking
//                    detector (nil for refresh conflicts).
//  WithReservation – the existing reservation being conflicted with.
//  Resource        – contested resource, set for double bookings.
//  Type            – DOUBLE_BOOKING / REFRESH_DURING_BOOKING /
//                    DOWNTIME_DURING_BOOKING.
//  Severity        – HIGH / MEDIUM / LOW.
//  Overlap         – intersection of the two intervals.
//  OverlapDuration – length of the intersection.
//  Resolution      – current resolution status, UNRESOLVED when open.
//  ResolutionNotes – free-text notes recorded at resolution time.
//  ResolvedBy      – user who resolved the conflict.
//  ResolvedAt      – when the conflict was resolved.
//  CreatedAt       – when the detector run produced the conflict.
type Conflict struct {
	ID              uint64        `json:"id"`
	IntentID        *uint64       `json:"intent_id,omitempty"`
	ReservationID   *uint64       `json:"reservation_id,omitempty"`
	WithReservation uint64        `json:"with_reservation_id"`
	Resource        *ResourceRef  `json:"resource,omitempty"`
	Type            string        `json:"type"`
	Severity        string        `json:"severity"`
	Overlap         Interval      `json:"overlap"`
	OverlapDuration time.Duration `json:"overlap_duration"`
	Resolution      string        `json:"resolution"`
	ResolutionNotes *string       `json:"resolution_notes,omitempty"`
	ResolvedBy      *uint64       `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// IsResolved reports whether the conflict has left UNRESOLVED.
func (c *Conflict) IsResolved() bool {
	return c.Resolution != ResolutionUnresolved
}

// severityRank maps severities onto comparable integers.
func severityRank(s string) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AggregateSeverity folds a conflict list into the NONE/MINOR/MAJOR summary
// flag: MAJOR when any conflict is HIGH, MINOR when the worst is MEDIUM or
// LOW, NONE for an empty list.
func AggregateSeverity(conflicts []Conflict) string {
	worst := 0
	for i := range conflicts {
		if r := severityRank(conflicts[i].Severity); r > worst {
			worst = r
		}
	}
	switch {
	case worst >= severityRank(SeverityHigh):
		return AggregateMajor
	case worst > 0:
		return AggregateMinor
	default:
		return AggregateNone
	}
}

// ValidResolution reports whether s is a terminal resolution status.
// UNRESOLVED is deliberately excluded: a conflict cannot be "resolved" back
// to open.
func ValidResolution(s string) bool {
	switch s {
	case ResolutionAcknowledged, ResolutionBookingMoved, ResolutionRefreshMoved,
		ResolutionOverrideApproved, ResolutionDismissed:
		return true
	}
	return false
}
