package engine

// DefaultMaxPages is the default page fetch budget for one backfill.
const DefaultMaxPages = 1000

// PageQuota counts page fetches against a fixed budget.
//
// CRITICAL DISTINCTION from StuckDetector:
//   - StuckDetector: catches a source that stops moving the cursor
//   - PageQuota: catches a source that keeps moving it forever
//
// Together they guarantee a backfill terminates.
type PageQuota struct {
	max     int
	fetched int
}

// NewPageQuota creates a quota allowing max fetches.
// A non-positive max uses DefaultMaxPages.
func NewPageQuota(max int) *PageQuota {
	if max <= 0 {
		max = DefaultMaxPages
	}
	return &PageQuota{max: max}
}

// Take records one page fetch.
func (q *PageQuota) Take() {
	q.fetched++
}

// Exhausted reports whether the budget has been spent.
func (q *PageQuota) Exhausted() bool {
	return q.fetched >= q.max
}

// Fetched returns the number of pages fetched so far.
func (q *PageQuota) Fetched() int {
	return q.fetched
}

// Max returns the page budget.
func (q *PageQuota) Max() int {
	return q.max
}
