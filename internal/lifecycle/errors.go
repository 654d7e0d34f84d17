package lifecycle

import (
	"fmt"

	"github.com/iliyamo/env-booking/internal/model"
)

// InvalidTransitionError is returned when a requested action is not
// reachable from the intent's current state.  Handlers surface both states
// so the user sees exactly why the action was refused.
type InvalidTransitionError struct {
	IntentID uint64
	From     string
	Action   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("intent %d: cannot %s from state %s", e.IntentID, e.Action, e.From)
}

// IsInvalidTransition reports whether err is an *InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	_, ok := err.(*InvalidTransitionError)
	return ok
}

// ApprovalBlockedError is returned when approval is attempted while
// unresolved HIGH conflicts exist and the acknowledgement/force-approval
// escape hatch does not apply.  It carries the blocking conflicts so the UI
// can route the user straight to resolving them.
type ApprovalBlockedError struct {
	IntentID  uint64
	Conflicts []model.Conflict
}

func (e *ApprovalBlockedError) Error() string {
	return fmt.Sprintf("intent %d: approval blocked by %d unresolved major conflict(s)",
		e.IntentID, len(e.Conflicts))
}

// IsApprovalBlocked reports whether err is an *ApprovalBlockedError.
func IsApprovalBlocked(err error) bool {
	_, ok := err.(*ApprovalBlockedError)
	return ok
}
