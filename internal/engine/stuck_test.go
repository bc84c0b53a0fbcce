package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStuckDetector_MovingCursorNeverTrips(t *testing.T) {
	d := NewStuckDetector(2)

	for _, c := range []string{"2025-10-05", "2025-10-04", "2025-10-03", "2025-10-02"} {
		assert.False(t, d.Observe(c))
		assert.Equal(t, 0, d.Repeats())
	}
}

func TestStuckDetector_TripsAfterThresholdRepeats(t *testing.T) {
	d := NewStuckDetector(2)

	assert.False(t, d.Observe("2025-10-03"))
	assert.False(t, d.Observe("2025-10-03"))
	assert.Equal(t, 1, d.Repeats())
	assert.True(t, d.Observe("2025-10-03"))
	assert.Equal(t, 2, d.Repeats())
}

func TestStuckDetector_MovementResets(t *testing.T) {
	d := NewStuckDetector(2)

	d.Observe("2025-10-03")
	d.Observe("2025-10-03")
	assert.Equal(t, 1, d.Repeats())

	assert.False(t, d.Observe("2025-10-02"))
	assert.Equal(t, 0, d.Repeats())

	assert.False(t, d.Observe("2025-10-02"))
	assert.True(t, d.Observe("2025-10-02"))
}

func TestStuckDetector_EmptyCursorIsTracked(t *testing.T) {
	d := NewStuckDetector(1)

	assert.False(t, d.Observe(""))
	assert.True(t, d.Observe(""))
}

func TestStuckDetector_DefaultThreshold(t *testing.T) {
	d := NewStuckDetector(0)

	d.Observe("x")
	assert.False(t, d.Observe("x"))
	assert.True(t, d.Observe("x"))
}
