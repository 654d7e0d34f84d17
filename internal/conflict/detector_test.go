package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/env-booking/internal/model"
)

func at(h int) time.Time {
	return time.Date(2026, time.March, 10, h, 0, 0, 0, time.UTC)
}

func env(id uint64) model.ResourceRef {
	return model.ResourceRef{Type: "ENVIRONMENT", ID: id}
}

func reservation(id uint64, res model.ResourceRef, from, to int, priority string) *model.Reservation {
	return &model.Reservation{
		ID:        id,
		Interval:  model.NewInterval(at(from), at(to)),
		Status:    model.ReservationActive,
		Resources: []model.ResourceRef{res},
		Priority:  priority,
	}
}

func TestDetectBookingConflictsOverlap(t *testing.T) {
	existing := reservation(1, env(10), 9, 12, model.PriorityNormal)

	candidate := Candidate{
		Interval:  model.NewInterval(at(11), at(14)),
		Resources: []model.ResourceRef{env(10)},
		Priority:  model.PriorityNormal,
	}
	conflicts := DetectBookingConflicts(candidate, []*model.Reservation{existing})
	require.Len(t, conflicts, 1)

	cf := conflicts[0]
	assert.Equal(t, model.ConflictDoubleBooking, cf.Type)
	assert.Equal(t, model.SeverityMedium, cf.Severity)
	assert.Equal(t, uint64(1), cf.WithReservation)
	assert.Equal(t, env(10), *cf.Resource)
	assert.Equal(t, at(11), cf.Overlap.Start)
	assert.Equal(t, at(12), cf.Overlap.End)
	assert.Equal(t, time.Hour, cf.OverlapDuration)
	assert.Equal(t, model.ResolutionUnresolved, cf.Resolution)
	assert.Nil(t, cf.ReservationID) // candidate had no identity yet
}

func TestDetectBookingConflictsTouchingWindows(t *testing.T) {
	existing := reservation(1, env(10), 9, 12, model.PriorityNormal)
	candidate := Candidate{
		Interval:  model.NewInterval(at(12), at(14)),
		Resources: []model.ResourceRef{env(10)},
		Priority:  model.PriorityNormal,
	}
	assert.Empty(t, DetectBookingConflicts(candidate, []*model.Reservation{existing}))
}

func TestDetectBookingConflictsSeverity(t *testing.T) {
	tests := []struct {
		name              string
		existingPriority  string
		candidatePriority string
		want              string
	}{
		{"outranked by existing", model.PriorityCritical, model.PriorityNormal, model.SeverityHigh},
		{"peers", model.PriorityNormal, model.PriorityNormal, model.SeverityMedium},
		{"candidate outranks existing", model.PriorityLow, model.PriorityHigh, model.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := reservation(1, env(10), 9, 12, tt.existingPriority)
			candidate := Candidate{
				Interval:  model.NewInterval(at(10), at(11)),
				Resources: []model.ResourceRef{env(10)},
				Priority:  tt.candidatePriority,
			}
			conflicts := DetectBookingConflicts(candidate, []*model.Reservation{existing})
			require.Len(t, conflicts, 1)
			assert.Equal(t, tt.want, conflicts[0].Severity)
		})
	}
}

func TestDetectBookingConflictsSkips(t *testing.T) {
	// Different resource, inactive reservation, and the candidate itself are
	// all invisible to the detector.
	otherResource := reservation(1, env(99), 9, 12, model.PriorityNormal)
	cancelled := reservation(2, env(10), 9, 12, model.PriorityNormal)
	cancelled.Status = model.ReservationCancelled
	self := reservation(3, env(10), 9, 12, model.PriorityNormal)

	candidate := Candidate{
		ID:        3,
		Interval:  model.NewInterval(at(10), at(11)),
		Resources: []model.ResourceRef{env(10)},
		Priority:  model.PriorityNormal,
	}
	conflicts := DetectBookingConflicts(candidate, []*model.Reservation{otherResource, cancelled, self})
	assert.Empty(t, conflicts)
}

func TestDetectBookingConflictsPerResourcePair(t *testing.T) {
	// A candidate claiming two resources against two overlapping holders
	// yields one conflict per contested pair.
	holderA := reservation(1, env(10), 9, 12, model.PriorityNormal)
	holderB := &model.Reservation{
		ID:        2,
		Interval:  model.NewInterval(at(9), at(12)),
		Status:    model.ReservationActive,
		Resources: []model.ResourceRef{env(10), env(20)},
		Priority:  model.PriorityNormal,
	}
	candidate := Candidate{
		ID:        7,
		Interval:  model.NewInterval(at(10), at(11)),
		Resources: []model.ResourceRef{env(10), env(20)},
		Priority:  model.PriorityNormal,
	}
	conflicts := DetectBookingConflicts(candidate, []*model.Reservation{holderA, holderB})
	require.Len(t, conflicts, 3)
	for _, cf := range conflicts {
		require.NotNil(t, cf.ReservationID)
		assert.Equal(t, uint64(7), *cf.ReservationID)
	}
}

func TestDetectBookingConflictsCaseInsensitiveResourceType(t *testing.T) {
	existing := reservation(1, model.ResourceRef{Type: "environment", ID: 10}, 9, 12, model.PriorityNormal)
	candidate := Candidate{
		Interval:  model.NewInterval(at(10), at(11)),
		Resources: []model.ResourceRef{env(10)},
		Priority:  model.PriorityNormal,
	}
	assert.Len(t, DetectBookingConflicts(candidate, []*model.Reservation{existing}), 1)
}
