package conflict

import (
	"github.com/iliyamo/env-booking/internal/model"
)

// RefreshResult bundles the outcome of a refresh conflict detection run:
// the individual conflicts, the NONE/MINOR/MAJOR aggregate flag derived
// from the worst severity, and whether approval of the intent will require
// force-approval capability.
type RefreshResult struct {
	Conflicts             []model.Conflict `json:"conflicts"`
	AggregateFlag         string           `json:"aggregate_flag"`
	RequiresForceApproval bool             `json:"requires_force_approval"`
}

// DetectRefreshConflicts compares a refresh intent's planned window against
// the reservations touching its target entity and classifies each overlap.
// The reservation slice is expected to already be scoped to the intent's
// target (resolved through the resource bindings lookup); inactive and
// non-overlapping reservations are skipped here regardless.
//
// Severity, in order of precedence:
//  1. READ_ONLY impact never emits a conflict.
//  2. DOWNTIME_REQUIRED is HIGH unconditionally: an active reservation
//     cannot tolerate its target being down.
//  3. DATA_OVERWRITE and SCHEMA_CHANGE are MEDIUM, escalated to HIGH when
//     the reservation is HIGH or CRITICAL priority.
//  4. CONFIG_CHANGE is LOW.
//
// A missing planned end time is defaulted through the interval's
// Normalized policy.  The only failure mode is a ValidationError for a
// malformed interval (end before start).
func DetectRefreshConflicts(intent *model.RefreshIntent, reservations []*model.Reservation) (RefreshResult, error) {
	window := intent.Window()
	if err := window.Validate(); err != nil {
		return RefreshResult{}, err
	}
	conflicts := make([]model.Conflict, 0)
	if intent.Impact != model.ImpactReadOnly {
		for _, res := range reservations {
			if !res.IsActive() {
				continue
			}
			overlap, ok := window.Overlap(res.Interval)
			if !ok {
				continue
			}
			ctype, severity := classifyRefresh(intent.Impact, res)
			conflicts = append(conflicts, model.Conflict{
				IntentID:        idRef(intent.ID),
				WithReservation: res.ID,
				Type:            ctype,
				Severity:        severity,
				Overlap:         overlap,
				OverlapDuration: overlap.Duration(),
				Resolution:      model.ResolutionUnresolved,
			})
		}
	}
	flag := model.AggregateSeverity(conflicts)
	return RefreshResult{
		Conflicts:             conflicts,
		AggregateFlag:         flag,
		RequiresForceApproval: flag == model.AggregateMajor,
	}, nil
}

// classifyRefresh maps an impact type and the conflicting reservation onto
// a conflict type and severity.  READ_ONLY never reaches this function.
func classifyRefresh(impact string, res *model.Reservation) (string, string) {
	switch impact {
	case model.ImpactDowntimeRequired:
		return model.ConflictDowntimeDuringBooking, model.SeverityHigh
	case model.ImpactDataOverwrite, model.ImpactSchemaChange:
		if res.IsCriticalPriority() {
			return model.ConflictRefreshDuringBooking, model.SeverityHigh
		}
		return model.ConflictRefreshDuringBooking, model.SeverityMedium
	case model.ImpactConfigChange:
		return model.ConflictRefreshDuringBooking, model.SeverityLow
	default:
		// Unknown impact types are graded like a data overwrite so a new
		// enum value fails safe rather than silently passing.
		if res.IsCriticalPriority() {
			return model.ConflictRefreshDuringBooking, model.SeverityHigh
		}
		return model.ConflictRefreshDuringBooking, model.SeverityMedium
	}
}
