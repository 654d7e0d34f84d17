package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateSeverity(t *testing.T) {
	mk := func(severities ...string) []Conflict {
		out := make([]Conflict, len(severities))
		for i, s := range severities {
			out[i] = Conflict{Severity: s}
		}
		return out
	}

	tests := []struct {
		name      string
		conflicts []Conflict
		want      string
	}{
		{"empty", nil, AggregateNone},
		{"single low", mk(SeverityLow), AggregateMinor},
		{"single medium", mk(SeverityMedium), AggregateMinor},
		{"single high", mk(SeverityHigh), AggregateMajor},
		{"high among mediums", mk(SeverityMedium, SeverityHigh, SeverityLow), AggregateMajor},
		{"mixed without high", mk(SeverityLow, SeverityMedium, SeverityLow), AggregateMinor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateSeverity(tt.conflicts))
		})
	}
}

func TestValidResolution(t *testing.T) {
	for _, s := range []string{
		ResolutionAcknowledged, ResolutionBookingMoved, ResolutionRefreshMoved,
		ResolutionOverrideApproved, ResolutionDismissed,
	} {
		assert.True(t, ValidResolution(s), s)
	}
	// UNRESOLVED is not a resolution a caller can apply.
	assert.False(t, ValidResolution(ResolutionUnresolved))
	assert.False(t, ValidResolution("FIXED"))
}

func TestReservationPriority(t *testing.T) {
	crit := &Reservation{Priority: PriorityCritical}
	assert.True(t, crit.Outranks(PriorityHigh))
	assert.True(t, crit.IsCriticalPriority())

	normal := &Reservation{Priority: PriorityNormal}
	assert.False(t, normal.Outranks(PriorityNormal))
	assert.True(t, normal.Outranks(PriorityLow))
	assert.False(t, normal.IsCriticalPriority())

	// Unknown priorities rank as NORMAL.
	odd := &Reservation{Priority: "WHATEVER"}
	assert.False(t, odd.Outranks(PriorityNormal))
	assert.True(t, odd.Outranks(PriorityLow))
}
