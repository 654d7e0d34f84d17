package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/env-booking/internal/model"
)

func intent(impact string, from, to int) *model.RefreshIntent {
	iv := model.Interval{Start: at(from)}
	if to > 0 {
		iv.End = at(to)
	}
	return &model.RefreshIntent{
		ID:       5,
		Target:   model.EntityRef{Type: model.EntityEnvironment, ID: 10},
		Interval: iv,
		Kind:     model.KindFullCopy,
		Impact:   impact,
		Status:   model.IntentDraft,
	}
}

func TestDetectRefreshConflictsReadOnly(t *testing.T) {
	res := reservation(1, env(10), 9, 12, model.PriorityCritical)
	result, err := DetectRefreshConflicts(intent(model.ImpactReadOnly, 9, 12), []*model.Reservation{res})
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, model.AggregateNone, result.AggregateFlag)
	assert.False(t, result.RequiresForceApproval)
}

func TestDetectRefreshConflictsDowntime(t *testing.T) {
	res := reservation(1, env(10), 9, 12, model.PriorityLow)
	result, err := DetectRefreshConflicts(intent(model.ImpactDowntimeRequired, 10, 11), []*model.Reservation{res})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)

	cf := result.Conflicts[0]
	assert.Equal(t, model.ConflictDowntimeDuringBooking, cf.Type)
	assert.Equal(t, model.SeverityHigh, cf.Severity)
	require.NotNil(t, cf.IntentID)
	assert.Equal(t, uint64(5), *cf.IntentID)
	assert.Equal(t, model.AggregateMajor, result.AggregateFlag)
	assert.True(t, result.RequiresForceApproval)
}

func TestDetectRefreshConflictsSeverityByImpact(t *testing.T) {
	tests := []struct {
		name         string
		impact       string
		resPriority  string
		wantType     string
		wantSeverity string
	}{
		{"overwrite vs normal", model.ImpactDataOverwrite, model.PriorityNormal, model.ConflictRefreshDuringBooking, model.SeverityMedium},
		{"overwrite vs high", model.ImpactDataOverwrite, model.PriorityHigh, model.ConflictRefreshDuringBooking, model.SeverityHigh},
		{"overwrite vs critical", model.ImpactDataOverwrite, model.PriorityCritical, model.ConflictRefreshDuringBooking, model.SeverityHigh},
		{"schema change vs normal", model.ImpactSchemaChange, model.PriorityNormal, model.ConflictRefreshDuringBooking, model.SeverityMedium},
		{"schema change vs high", model.ImpactSchemaChange, model.PriorityHigh, model.ConflictRefreshDuringBooking, model.SeverityHigh},
		{"config change vs critical", model.ImpactConfigChange, model.PriorityCritical, model.ConflictRefreshDuringBooking, model.SeverityLow},
		{"unknown impact fails safe", "SOMETHING_NEW", model.PriorityNormal, model.ConflictRefreshDuringBooking, model.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reservation(1, env(10), 9, 12, tt.resPriority)
			result, err := DetectRefreshConflicts(intent(tt.impact, 10, 11), []*model.Reservation{res})
			require.NoError(t, err)
			require.Len(t, result.Conflicts, 1)
			assert.Equal(t, tt.wantType, result.Conflicts[0].Type)
			assert.Equal(t, tt.wantSeverity, result.Conflicts[0].Severity)
		})
	}
}

func TestDetectRefreshConflictsDefaultWindow(t *testing.T) {
	// Open-ended plan starting at 09:00 is treated as [09:00, 11:00); a
	// booking starting at 11:00 therefore does not conflict, one starting at
	// 10:00 does.
	later := reservation(1, env(10), 11, 13, model.PriorityNormal)
	result, err := DetectRefreshConflicts(intent(model.ImpactDataOverwrite, 9, 0), []*model.Reservation{later})
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)

	inside := reservation(2, env(10), 10, 13, model.PriorityNormal)
	result, err = DetectRefreshConflicts(intent(model.ImpactDataOverwrite, 9, 0), []*model.Reservation{inside})
	require.NoError(t, err)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, time.Hour, result.Conflicts[0].OverlapDuration)
}

func TestDetectRefreshConflictsSkipsInactive(t *testing.T) {
	done := reservation(1, env(10), 9, 12, model.PriorityNormal)
	done.Status = model.ReservationCompleted
	result, err := DetectRefreshConflicts(intent(model.ImpactDowntimeRequired, 9, 12), []*model.Reservation{done})
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)
}

func TestDetectRefreshConflictsInvalidWindow(t *testing.T) {
	bad := intent(model.ImpactDataOverwrite, 12, 9)
	_, err := DetectRefreshConflicts(bad, nil)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestDetectRefreshConflictsAggregateMinor(t *testing.T) {
	res := reservation(1, env(10), 9, 12, model.PriorityNormal)
	result, err := DetectRefreshConflicts(intent(model.ImpactConfigChange, 10, 11), []*model.Reservation{res})
	require.NoError(t, err)
	assert.Equal(t, model.AggregateMinor, result.AggregateFlag)
	assert.False(t, result.RequiresForceApproval)
}
