// Package queue defines message payloads exchanged over the message broker.
package queue

// LifecycleEvent is published on every refresh intent state transition.
// It carries enough information for downstream consumers to build an audit
// trail or notify stakeholders without querying the primary database.
type LifecycleEvent struct {
	IntentID   uint64 `json:"intent_id"`
	EntityType string `json:"entity_type"`
	EntityID   uint64 `json:"entity_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Action     string `json:"action"`
	ActorID    uint64 `json:"actor_id"`
	OccurredAt string `json:"occurred_at"`
}

// BookingFlaggedEvent is published when a new reservation is created with
// one or more detected conflicts.
type BookingFlaggedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	OwnerID       uint64 `json:"owner_id"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Priority      string `json:"priority"`
	ConflictCount int    `json:"conflict_count"`
	AggregateFlag string `json:"aggregate_flag"`
	FlaggedAt     string `json:"flagged_at"`
}

// ConflictResolvedEvent is published when a conflict reaches a terminal
// resolution.
type ConflictResolvedEvent struct {
	ConflictID uint64 `json:"conflict_id"`
	IntentID   uint64 `json:"intent_id,omitempty"`
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Resolution string `json:"resolution"`
	ResolvedBy uint64 `json:"resolved_by"`
	ResolvedAt string `json:"resolved_at"`
}
