// Package lifecycle implements the refresh intent state machine:
//
//	DRAFT → REQUESTED → APPROVED → SCHEDULED → IN_PROGRESS → {COMPLETED | FAILED}
//
// with CANCELLED reachable from every state before IN_PROGRESS and
// ROLLED_BACK reachable from the two run outcomes through an explicit
// rollback action only.  States only ever advance; nothing here re-opens a
// terminal intent.
//
// Each transition is a pure function over caller-loaded state: the intent,
// the currently unresolved conflicts where relevant, and the acting user.
// Serialising concurrent mutations of the same intent is the caller's job
// (the handlers take a row lock for the duration of the transaction).
// Every successful transition returns an Event for the audit sink.
package lifecycle

import (
	"strings"
	"time"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/model"
)

// Completion outcomes accepted by Complete.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailure = "FAILURE"
)

// Event records a single lifecycle transition for the audit trail.
//
// Fields:
//  IntentID – intent that transitioned.
//  From     – state before the transition.
//  To       – state after the transition.
//  Action   – the action that drove it (submit, approve, ...).
//  ActorID  – user who performed the action.
//  At       – when the transition happened (UTC).
type Event struct {
	IntentID uint64    `json:"intent_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Action   string    `json:"action"`
	ActorID  uint64    `json:"actor_id"`
	At       time.Time `json:"at"`
}

// transition mutates the intent's status and builds the audit event.
func transition(intent *model.RefreshIntent, action, to string, actorID uint64, now time.Time) Event {
	ev := Event{
		IntentID: intent.ID,
		From:     intent.Status,
		To:       to,
		Action:   action,
		ActorID:  actorID,
		At:       now.UTC(),
	}
	intent.Status = to
	intent.UpdatedAt = ev.At
	return ev
}

// Submit moves a draft intent into REQUESTED.  Submission is always
// allowed from DRAFT; the caller is responsible for running the refresh
// conflict detector afterwards and persisting its results.
func Submit(intent *model.RefreshIntent, actorID uint64, now time.Time) (Event, error) {
	if intent.Status != model.IntentDraft {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "submit"}
	}
	return transition(intent, "submit", model.IntentRequested, actorID, now), nil
}

// Approve moves a requested intent into APPROVED.  When unresolved HIGH
// conflicts exist the transition is blocked unless the requester has
// acknowledged the conflicts and the actor holds force-approval
// capability.  The caller supplies the intent's current conflicts; Approve
// re-filters them so a conflict resolved since detection no longer blocks.
func Approve(intent *model.RefreshIntent, conflicts []model.Conflict, canForceApprove bool, actorID uint64, now time.Time) (Event, error) {
	if intent.Status != model.IntentRequested {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "approve"}
	}
	blocking := conflict.UnresolvedHigh(conflicts)
	if len(blocking) > 0 && !(intent.ConflictAcknowledged && canForceApprove) {
		return Event{}, &ApprovalBlockedError{IntentID: intent.ID, Conflicts: blocking}
	}
	return transition(intent, "approve", model.IntentApproved, actorID, now), nil
}

// Reject terminates a requested intent.  It is modelled as CANCELLED with
// the rejection reason recorded; the reason is mandatory.
func Reject(intent *model.RefreshIntent, reason string, actorID uint64, now time.Time) (Event, error) {
	if strings.TrimSpace(reason) == "" {
		return Event{}, model.NewValidationError("rejection reason is required")
	}
	if intent.Status != model.IntentRequested {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "reject"}
	}
	intent.RejectionReason = &reason
	return transition(intent, "reject", model.IntentCancelled, actorID, now), nil
}

// Schedule moves an approved intent into SCHEDULED.  No preconditions
// beyond the current state.
func Schedule(intent *model.RefreshIntent, actorID uint64, now time.Time) (Event, error) {
	if intent.Status != model.IntentApproved {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "schedule"}
	}
	return transition(intent, "schedule", model.IntentScheduled, actorID, now), nil
}

// Start begins execution.  Allowed from APPROVED or SCHEDULED; starting an
// intent that is already running or finished fails.
func Start(intent *model.RefreshIntent, actorID uint64, now time.Time) (Event, error) {
	if intent.Status != model.IntentApproved && intent.Status != model.IntentScheduled {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "start"}
	}
	return transition(intent, "start", model.IntentInProgress, actorID, now), nil
}

// Complete finishes a running intent with the given outcome.  SUCCESS lands
// in COMPLETED, FAILURE in FAILED; any state other than IN_PROGRESS is an
// invalid transition.
func Complete(intent *model.RefreshIntent, outcome string, durationMin uint32, notes string, actorID uint64, now time.Time) (Event, error) {
	outcome = strings.ToUpper(strings.TrimSpace(outcome))
	var to string
	switch outcome {
	case OutcomeSuccess:
		to = model.IntentCompleted
	case OutcomeFailure, "FAILED":
		outcome = OutcomeFailure
		to = model.IntentFailed
	default:
		return Event{}, model.NewValidationError("outcome must be SUCCESS or FAILURE")
	}
	if intent.Status != model.IntentInProgress {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "complete"}
	}
	intent.Outcome = &outcome
	intent.ActualDurationMin = &durationMin
	if notes != "" {
		intent.CompletionNotes = &notes
	}
	return transition(intent, "complete", to, actorID, now), nil
}

// Cancel terminates an intent that has not started running.  IN_PROGRESS
// and terminal intents cannot be cancelled.
func Cancel(intent *model.RefreshIntent, actorID uint64, now time.Time) (Event, error) {
	switch intent.Status {
	case model.IntentDraft, model.IntentRequested, model.IntentApproved, model.IntentScheduled:
		return transition(intent, "cancel", model.IntentCancelled, actorID, now), nil
	}
	return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "cancel"}
}

// Rollback marks a finished run as rolled back.  Only COMPLETED and FAILED
// intents can be rolled back, and only through this explicit action.
func Rollback(intent *model.RefreshIntent, actorID uint64, now time.Time) (Event, error) {
	if intent.Status != model.IntentCompleted && intent.Status != model.IntentFailed {
		return Event{}, &InvalidTransitionError{IntentID: intent.ID, From: intent.Status, Action: "rollback"}
	}
	return transition(intent, "rollback", model.IntentRolledBack, actorID, now), nil
}
