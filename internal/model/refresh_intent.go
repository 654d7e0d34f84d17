package model

import (
	"strings"
	"time"
)

// Refresh kinds describe the data-movement semantics of a planned refresh.
const (
	KindFullCopy   = "FULL_COPY"
	KindMaskedCopy = "MASKED_COPY"
	KindSchemaOnly = "SCHEMA_ONLY"
	KindReadOnly   = "READ_ONLY"
)

// Impact types classify what a refresh does to the target entity while it
// runs.  Impact drives conflict severity: READ_ONLY operations never
// conflict, DOWNTIME_REQUIRED ones always conflict hard.
const (
	ImpactDataOverwrite    = "DATA_OVERWRITE"
	ImpactDowntimeRequired = "DOWNTIME_REQUIRED"
	ImpactSchemaChange     = "SCHEMA_CHANGE"
	ImpactConfigChange     = "CONFIG_CHANGE"
	ImpactReadOnly         = "READ_ONLY"
)

// Refresh intent lifecycle states.  The transition graph is owned by the
// lifecycle package; the model only names the states.
const (
	IntentDraft      = "DRAFT"
	IntentRequested  = "REQUESTED"
	IntentApproved   = "APPROVED"
	IntentScheduled  = "SCHEDULED"
	IntentInProgress = "IN_PROGRESS"
	IntentCompleted  = "COMPLETED"
	IntentFailed     = "FAILED"
	IntentCancelled  = "CANCELLED"
	IntentRolledBack = "ROLLED_BACK"
)

// Aggregate conflict flags summarising the worst individual conflict
// severity for a refresh intent.
const (
	AggregateNone  = "NONE"
	AggregateMinor = "MINOR"
	AggregateMajor = "MAJOR"
)

// RefreshIntent represents a planned copy/refresh/reset operation against an
// entity that is, or is hosted on, a bookable resource.  An intent moves
// through an approval lifecycle that gates on unresolved conflicts.
//
// Fields:
//  ID                   – primary key identifier.
//  Target               – entity the refresh is executed against.
//  Interval             – planned window; End may be zero (open plan).
//  Kind                 – data-movement semantics (FULL_COPY ...).
//  Impact               – impact classification (DATA_OVERWRITE ...).
//  RequiresDowntime     – whether the target is unavailable during the run.
//  EstimatedDowntimeMin – estimated downtime in minutes when applicable.
//  Status               – lifecycle state (DRAFT .. ROLLED_BACK).
//  ConflictAcknowledged – requester accepted the detected conflicts.
//  Reason               – free-text justification for the refresh.
//  RejectionReason      – set when an approver rejects the intent.
//  RequesterID          – user who created the intent.
//  Outcome              – SUCCESS or FAILURE once completed.
//  ActualDurationMin    – reported run duration in minutes.
//  CompletionNotes      – operator notes recorded at completion.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type RefreshIntent struct {
	ID                   uint64    `json:"id"`
	Target               EntityRef `json:"target"`
	Interval             Interval  `json:"interval"`
	Kind                 string    `json:"kind"`
	Impact               string    `json:"impact"`
	RequiresDowntime     bool      `json:"requires_downtime"`
	EstimatedDowntimeMin uint32    `json:"estimated_downtime_min,omitempty"`
	Status               string    `json:"status"`
	ConflictAcknowledged bool      `json:"conflict_acknowledged"`
	Reason               string    `json:"reason"`
	RejectionReason      *string   `json:"rejection_reason,omitempty"`
	RequesterID          uint64    `json:"requester_id"`
	Outcome              *string   `json:"outcome,omitempty"`
	ActualDurationMin    *uint32   `json:"actual_duration_min,omitempty"`
	CompletionNotes      *string   `json:"completion_notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Window returns the planned interval with the default refresh window
// applied when no end time was given.
func (ri *RefreshIntent) Window() Interval {
	return ri.Interval.Normalized()
}

// IsTerminal reports whether the intent reached a state no ordinary
// transition leaves.  ROLLED_BACK is reachable from COMPLETED and FAILED
// through the explicit rollback action only.
func (ri *RefreshIntent) IsTerminal() bool {
	switch ri.Status {
	case IntentCompleted, IntentFailed, IntentCancelled, IntentRolledBack:
		return true
	}
	return false
}

// ValidRefreshKind reports whether k is a known refresh kind.
func ValidRefreshKind(k string) bool {
	switch strings.ToUpper(k) {
	case KindFullCopy, KindMaskedCopy, KindSchemaOnly, KindReadOnly:
		return true
	}
	return false
}

// ValidImpact reports whether i is a known impact type.
func ValidImpact(i string) bool {
	switch strings.ToUpper(i) {
	case ImpactDataOverwrite, ImpactDowntimeRequired, ImpactSchemaChange,
		ImpactConfigChange, ImpactReadOnly:
		return true
	}
	return false
}
