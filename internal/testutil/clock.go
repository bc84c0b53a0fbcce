package testutil

import (
	"sync"
	"time"
)

// DefaultClockBase is the first instant returned by a StepClock created with
// a zero base.
var DefaultClockBase = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by a
// fixed step, so a run's started_at and finished_at differ by exactly one
// step and golden run logs stay byte-identical.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	base time.Time
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at base and advancing by step.
// A zero base uses DefaultClockBase. A zero step uses one second.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	if base.IsZero() {
		base = DefaultClockBase
	}
	if step == 0 {
		step = time.Second
	}
	return &StepClock{base: base, now: base, step: step}
}

// Now returns the current instant and advances the clock.
//
// Implements engine.Clock interface.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now call will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its base.
//
// Used for test reuse. After Reset(), the next call to Now() returns base.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.base
}
