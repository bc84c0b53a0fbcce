package engine

import "time"

// Clock supplies wall-clock time for run bookkeeping.
//
// Time is only used to stamp sync_runs rows and measure durations; it never
// influences which samples are fetched or stored.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
