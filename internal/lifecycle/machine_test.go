package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/env-booking/internal/conflict"
	"github.com/iliyamo/env-booking/internal/model"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func draft() *model.RefreshIntent {
	return &model.RefreshIntent{
		ID:     9,
		Target: model.EntityRef{Type: model.EntityEnvironment, ID: 3},
		Status: model.IntentDraft,
	}
}

func highConflict(resolved bool) model.Conflict {
	cf := model.Conflict{Severity: model.SeverityHigh, Resolution: model.ResolutionUnresolved}
	if resolved {
		cf.Resolution = model.ResolutionRefreshMoved
	}
	return cf
}

func TestHappyPathToCompleted(t *testing.T) {
	in := draft()

	ev, err := Submit(in, 1, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentDraft, ev.From)
	assert.Equal(t, model.IntentRequested, ev.To)
	assert.Equal(t, "submit", ev.Action)
	assert.Equal(t, model.IntentRequested, in.Status)

	_, err = Approve(in, nil, false, 2, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentApproved, in.Status)

	_, err = Schedule(in, 2, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentScheduled, in.Status)

	_, err = Start(in, 1, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentInProgress, in.Status)

	ev, err = Complete(in, OutcomeSuccess, 38, "all good", 1, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentCompleted, in.Status)
	assert.Equal(t, model.IntentCompleted, ev.To)
	require.NotNil(t, in.Outcome)
	assert.Equal(t, OutcomeSuccess, *in.Outcome)
	require.NotNil(t, in.ActualDurationMin)
	assert.Equal(t, uint32(38), *in.ActualDurationMin)
	require.NotNil(t, in.CompletionNotes)
	assert.Equal(t, "all good", *in.CompletionNotes)
	assert.True(t, in.IsTerminal())
}

func TestStartDirectlyFromApproved(t *testing.T) {
	in := draft()
	in.Status = model.IntentApproved
	_, err := Start(in, 1, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentInProgress, in.Status)
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	in := draft()
	in.Status = model.IntentRequested
	_, err := Submit(in, 1, now)
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
}

func TestApproveBlockedByUnresolvedHigh(t *testing.T) {
	in := draft()
	in.Status = model.IntentRequested

	_, err := Approve(in, []model.Conflict{highConflict(false)}, false, 2, now)
	require.Error(t, err)
	assert.True(t, IsApprovalBlocked(err))
	assert.Equal(t, model.IntentRequested, in.Status)

	blocked, ok := err.(*ApprovalBlockedError)
	require.True(t, ok)
	assert.Len(t, blocked.Conflicts, 1)
}

func TestApproveForceRequiresAcknowledgementAndCapability(t *testing.T) {
	conflicts := []model.Conflict{highConflict(false)}

	// Capability without acknowledgement is not enough.
	in := draft()
	in.Status = model.IntentRequested
	_, err := Approve(in, conflicts, true, 2, now)
	assert.True(t, IsApprovalBlocked(err))

	// Acknowledgement without capability is not enough either.
	in = draft()
	in.Status = model.IntentRequested
	in.ConflictAcknowledged = true
	_, err = Approve(in, conflicts, false, 2, now)
	assert.True(t, IsApprovalBlocked(err))

	// Both together unlock the approval.
	in = draft()
	in.Status = model.IntentRequested
	in.ConflictAcknowledged = true
	_, err = Approve(in, conflicts, true, 2, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentApproved, in.Status)
}

func TestApprovePassesWhenHighConflictResolved(t *testing.T) {
	in := draft()
	in.Status = model.IntentRequested

	// A HIGH conflict that has since been resolved no longer blocks, and a
	// MEDIUM one never did.
	conflicts := []model.Conflict{
		highConflict(true),
		{Severity: model.SeverityMedium, Resolution: model.ResolutionUnresolved},
	}
	require.Empty(t, conflict.UnresolvedHigh(conflicts))

	_, err := Approve(in, conflicts, false, 2, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentApproved, in.Status)
}

func TestRejectRequiresReason(t *testing.T) {
	in := draft()
	in.Status = model.IntentRequested

	_, err := Reject(in, "   ", 2, now)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
	assert.Equal(t, model.IntentRequested, in.Status)

	_, err = Reject(in, "window collides with release freeze", 2, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentCancelled, in.Status)
	require.NotNil(t, in.RejectionReason)
	assert.Equal(t, "window collides with release freeze", *in.RejectionReason)
}

func TestCompleteOutcomes(t *testing.T) {
	in := draft()
	in.Status = model.IntentInProgress
	_, err := Complete(in, "failure", 10, "", 1, now)
	require.NoError(t, err)
	assert.Equal(t, model.IntentFailed, in.Status)
	require.NotNil(t, in.Outcome)
	assert.Equal(t, OutcomeFailure, *in.Outcome)

	in = draft()
	in.Status = model.IntentInProgress
	_, err = Complete(in, "shrug", 10, "", 1, now)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))

	in = draft()
	in.Status = model.IntentScheduled
	_, err = Complete(in, OutcomeSuccess, 10, "", 1, now)
	assert.True(t, IsInvalidTransition(err))
}

func TestCancelRules(t *testing.T) {
	for _, status := range []string{
		model.IntentDraft, model.IntentRequested, model.IntentApproved, model.IntentScheduled,
	} {
		in := draft()
		in.Status = status
		_, err := Cancel(in, 1, now)
		require.NoError(t, err, status)
		assert.Equal(t, model.IntentCancelled, in.Status)
	}

	for _, status := range []string{
		model.IntentInProgress, model.IntentCompleted, model.IntentFailed,
		model.IntentCancelled, model.IntentRolledBack,
	} {
		in := draft()
		in.Status = status
		_, err := Cancel(in, 1, now)
		assert.True(t, IsInvalidTransition(err), status)
	}
}

func TestRollbackRules(t *testing.T) {
	for _, status := range []string{model.IntentCompleted, model.IntentFailed} {
		in := draft()
		in.Status = status
		_, err := Rollback(in, 1, now)
		require.NoError(t, err, status)
		assert.Equal(t, model.IntentRolledBack, in.Status)
	}

	for _, status := range []string{
		model.IntentDraft, model.IntentRequested, model.IntentApproved,
		model.IntentScheduled, model.IntentInProgress, model.IntentCancelled,
		model.IntentRolledBack,
	} {
		in := draft()
		in.Status = status
		_, err := Rollback(in, 1, now)
		assert.True(t, IsInvalidTransition(err), status)
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, status := range []string{model.IntentCancelled, model.IntentRolledBack} {
		in := draft()
		in.Status = status
		_, err := Submit(in, 1, now)
		assert.True(t, IsInvalidTransition(err), status)
		_, err = Approve(in, nil, true, 1, now)
		assert.True(t, IsInvalidTransition(err), status)
		_, err = Start(in, 1, now)
		assert.True(t, IsInvalidTransition(err), status)
	}
}
