package engine

// DefaultStuckThreshold is the number of consecutive repeated cursors after
// which a backfill concludes the source has no older data.
const DefaultStuckThreshold = 2

// StuckDetector is a fixed-point detector on the pagination cursor.
//
// A source that keeps answering with the same oldest sample leaves the cursor
// unchanged between iterations. Each repeat increments a counter; any
// movement resets it. Once the counter reaches the threshold the walk stops.
//
// StuckDetector is not safe for concurrent use; a backfill owns one instance.
type StuckDetector struct {
	threshold int
	repeats   int
	previous  string
	seen      bool
}

// NewStuckDetector creates a detector that trips after threshold repeats.
// A non-positive threshold uses DefaultStuckThreshold.
func NewStuckDetector(threshold int) *StuckDetector {
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	return &StuckDetector{threshold: threshold}
}

// Observe records the cursor for this iteration and reports whether the
// walk is stuck.
func (d *StuckDetector) Observe(cursor string) bool {
	if d.seen && cursor == d.previous {
		d.repeats++
	} else {
		d.repeats = 0
	}
	d.previous = cursor
	d.seen = true
	return d.repeats >= d.threshold
}

// Repeats returns the current consecutive repeat count.
func (d *StuckDetector) Repeats() int {
	return d.repeats
}
