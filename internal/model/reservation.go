package model

import "time"

// Reservation statuses.  Only reservations outside the two terminal states
// participate in conflict detection.
const (
	ReservationRequested       = "REQUESTED"
	ReservationPendingApproval = "PENDING_APPROVAL"
	ReservationApproved        = "APPROVED"
	ReservationActive          = "ACTIVE"
	ReservationCompleted       = "COMPLETED"
	ReservationCancelled       = "CANCELLED"
)

// Reservation priority classes, ordered weakest to strongest.  Priority
// feeds severity scoring: a conflict with a HIGH or CRITICAL reservation is
// graded harder than one between peers.
const (
	PriorityLow      = "LOW"
	PriorityNormal   = "NORMAL"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// Conflict review markers carried on a reservation.  Creation is never
// blocked by a detected double booking; the reservation is created and
// flagged for human review instead.
const (
	ConflictStatusNone    = "NONE"
	ConflictStatusFlagged = "FLAGGED"
)

// Reservation represents an exclusive time-bounded claim on one or more
// resources.  It is the unit the booking conflict detector compares
// candidates against.
//
// Fields:
//  ID             – primary key identifier.
//  Interval       – half-open claim window.
//  Status         – lifecycle status (REQUESTED .. CANCELLED).
//  Resources      – bookable resources held by this reservation.
//  Priority       – priority class used for severity scoring.
//  Phase          – free-form phase label (e.g. "UAT", "regression").
//  OwnerID        – user who created the reservation.
//  ConflictStatus – NONE, or FLAGGED when created with known conflicts.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Reservation struct {
	ID             uint64        `json:"id"`
	Interval       Interval      `json:"interval"`
	Status         string        `json:"status"`
	Resources      []ResourceRef `json:"resources"`
	Priority       string        `json:"priority"`
	Phase          string        `json:"phase,omitempty"`
	OwnerID        uint64        `json:"owner_id"`
	ConflictStatus string        `json:"conflict_status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsActive reports whether the reservation still holds its resources.
// Completed and cancelled reservations are invisible to conflict detection.
func (r *Reservation) IsActive() bool {
	return r.Status != ReservationCompleted && r.Status != ReservationCancelled
}

// Holds reports whether the reservation claims the given resource.
func (r *Reservation) Holds(ref ResourceRef) bool {
	for _, res := range r.Resources {
		if res.Equal(ref) {
			return true
		}
	}
	return false
}

// priorityRank maps priority classes onto comparable integers.  Unknown
// values rank as NORMAL.
func priorityRank(p string) int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 1
	}
}

// Outranks reports whether the reservation's priority class is strictly
// higher than the given one.
func (r *Reservation) Outranks(priority string) bool {
	return priorityRank(r.Priority) > priorityRank(priority)
}

// IsCriticalPriority reports whether the reservation is HIGH or CRITICAL
// priority.  Refresh conflicts against such reservations are escalated.
func (r *Reservation) IsCriticalPriority() bool {
	return priorityRank(r.Priority) >= priorityRank(PriorityHigh)
}

// ValidReservationStatus reports whether s is a known reservation status.
func ValidReservationStatus(s string) bool {
	switch s {
	case ReservationRequested, ReservationPendingApproval, ReservationApproved,
		ReservationActive, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority class.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
