// Package conflict implements the temporal conflict detectors and the
// per-conflict resolution tracker.  Both detectors are pure: they read a
// caller-supplied snapshot of active reservations and return conflict
// values without touching any shared state, so concurrent detector runs
// never interfere with each other.  Persisting the results is the caller's
// concern, which is what makes preview mode free.
package conflict

import (
	"github.com/iliyamo/env-booking/internal/model"
)

// Candidate is a proposed reservation that has not been persisted yet: a
// claim window plus the resources it wants to hold.  ID carries the
// reservation's identity when an existing reservation is re-checked (e.g.
// after editing its window) so it can be excluded from the active set.
type Candidate struct {
	ID        uint64              `json:"id,omitempty"`
	Interval  model.Interval      `json:"interval"`
	Resources []model.ResourceRef `json:"resources"`
	Priority  string              `json:"priority"`
}

// DetectBookingConflicts compares a candidate reservation against the
// active reservations and returns one DOUBLE_BOOKING conflict per
// contested resource and overlapping reservation.  Double booking is
// binary; severity only encodes the priority relationship: a candidate
// colliding with a reservation that outranks it is HIGH, peers are MEDIUM.
//
// Detection never blocks creation.  Callers persist the reservation
// regardless and set its conflict status to FLAGGED for human review.
func DetectBookingConflicts(candidate Candidate, active []*model.Reservation) []model.Conflict {
	conflicts := make([]model.Conflict, 0)
	for _, res := range candidate.Resources {
		for _, existing := range active {
			if existing.ID != 0 && existing.ID == candidate.ID {
				continue // a reservation never conflicts with itself
			}
			if !existing.IsActive() || !existing.Holds(res) {
				continue
			}
			overlap, ok := candidate.Interval.Overlap(existing.Interval)
			if !ok {
				continue
			}
			severity := model.SeverityMedium
			if existing.Outranks(candidate.Priority) {
				severity = model.SeverityHigh
			}
			resource := res
			conflicts = append(conflicts, model.Conflict{
				ReservationID:   idRef(candidate.ID),
				WithReservation: existing.ID,
				Resource:        &resource,
				Type:            model.ConflictDoubleBooking,
				Severity:        severity,
				Overlap:         overlap,
				OverlapDuration: overlap.Duration(),
				Resolution:      model.ResolutionUnresolved,
			})
		}
	}
	return conflicts
}

// idRef returns a pointer to id, or nil when the candidate has no identity
// yet (preview of a brand new reservation).
func idRef(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}
