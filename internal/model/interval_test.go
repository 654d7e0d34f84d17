package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h int) time.Time {
	return time.Date(2026, time.March, 10, h, 0, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", NewInterval(at(9), at(10)), NewInterval(at(11), at(12)), false},
		{"touching endpoints", NewInterval(at(9), at(10)), NewInterval(at(10), at(11)), false},
		{"touching reversed", NewInterval(at(10), at(11)), NewInterval(at(9), at(10)), false},
		{"partial overlap", NewInterval(at(9), at(11)), NewInterval(at(10), at(12)), true},
		{"contained", NewInterval(at(9), at(14)), NewInterval(at(10), at(11)), true},
		{"identical", NewInterval(at(9), at(10)), NewInterval(at(9), at(10)), true},
		{"one minute shared", NewInterval(at(9), at(10).Add(time.Minute)), NewInterval(at(10), at(11)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestIntervalOverlap(t *testing.T) {
	a := NewInterval(at(9), at(12))
	b := NewInterval(at(11), at(14))

	ov, ok := a.Overlap(b)
	require.True(t, ok)
	assert.Equal(t, at(11), ov.Start)
	assert.Equal(t, at(12), ov.End)
	assert.Equal(t, time.Hour, a.OverlapDuration(b))

	_, ok = a.Overlap(NewInterval(at(12), at(13)))
	assert.False(t, ok)
	assert.Zero(t, a.OverlapDuration(NewInterval(at(12), at(13))))
}

func TestIntervalValidate(t *testing.T) {
	assert.NoError(t, NewInterval(at(9), at(10)).Validate())

	err := NewInterval(at(10), at(9)).Validate()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// Zero-length intervals are rejected; End is exclusive.
	assert.Error(t, NewInterval(at(9), at(9)).Validate())
	assert.Error(t, Interval{End: at(9)}.Validate())
}

func TestIntervalNormalized(t *testing.T) {
	open := Interval{Start: at(9)}
	norm := open.Normalized()
	assert.Equal(t, at(9), norm.Start)
	assert.Equal(t, at(9).Add(DefaultRefreshWindow), norm.End)
	require.NoError(t, norm.Validate())

	// An interval that already has an end is untouched.
	closed := NewInterval(at(9), at(10))
	assert.Equal(t, closed, closed.Normalized())
}
