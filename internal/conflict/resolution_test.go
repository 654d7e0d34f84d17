package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/env-booking/internal/model"
)

func openConflict() *model.Conflict {
	return &model.Conflict{
		ID:         42,
		Type:       model.ConflictDoubleBooking,
		Severity:   model.SeverityHigh,
		Resolution: model.ResolutionUnresolved,
	}
}

func TestResolve(t *testing.T) {
	cf := openConflict()
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

	err := Resolve(cf, model.ResolutionBookingMoved, "moved to next week", 7, now)
	require.NoError(t, err)
	assert.Equal(t, model.ResolutionBookingMoved, cf.Resolution)
	require.NotNil(t, cf.ResolutionNotes)
	assert.Equal(t, "moved to next week", *cf.ResolutionNotes)
	require.NotNil(t, cf.ResolvedBy)
	assert.Equal(t, uint64(7), *cf.ResolvedBy)
	require.NotNil(t, cf.ResolvedAt)
	assert.Equal(t, now, *cf.ResolvedAt)
}

func TestResolveOnlyOnce(t *testing.T) {
	cf := openConflict()
	require.NoError(t, Resolve(cf, model.ResolutionAcknowledged, "", 7, time.Now()))

	err := Resolve(cf, model.ResolutionDismissed, "", 8, time.Now())
	require.Error(t, err)
	assert.True(t, IsAlreadyResolved(err))
	// The first resolution stands.
	assert.Equal(t, model.ResolutionAcknowledged, cf.Resolution)
	assert.Equal(t, uint64(7), *cf.ResolvedBy)
}

func TestResolveRejectsBadStatus(t *testing.T) {
	cf := openConflict()
	assert.Error(t, Resolve(cf, "WONTFIX", "", 7, time.Now()))
	assert.Error(t, Resolve(cf, model.ResolutionUnresolved, "", 7, time.Now()))
	assert.Equal(t, model.ResolutionUnresolved, cf.Resolution)
}

func TestUnresolvedHigh(t *testing.T) {
	conflicts := []model.Conflict{
		{ID: 1, Severity: model.SeverityHigh, Resolution: model.ResolutionUnresolved},
		{ID: 2, Severity: model.SeverityHigh, Resolution: model.ResolutionOverrideApproved},
		{ID: 3, Severity: model.SeverityMedium, Resolution: model.ResolutionUnresolved},
		{ID: 4, Severity: model.SeverityLow, Resolution: model.ResolutionUnresolved},
	}
	blocking := UnresolvedHigh(conflicts)
	require.Len(t, blocking, 1)
	assert.Equal(t, uint64(1), blocking[0].ID)

	assert.Empty(t, UnresolvedHigh(nil))
}
