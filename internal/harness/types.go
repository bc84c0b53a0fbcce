package harness

import "github.com/roach88/sensorsync/internal/engine"

// Trace event types.
const (
	EventFetch  = "fetch"
	EventUpsert = "upsert"
	EventRun    = "run"
)

// TraceEvent records one observable step of a scenario.
// Fields not relevant to the event type are left zero.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`

	// fetch
	Before  string `json:"before,omitempty"`
	Samples int    `json:"samples,omitempty"`

	// upsert
	Key     string `json:"key,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	// run
	Mode       string `json:"mode,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
	Inserted   int    `json:"inserted,omitempty"`
	Updated    int    `json:"updated,omitempty"`
	Unchanged  int    `json:"unchanged,omitempty"`

	// fetch or run
	Error string `json:"error,omitempty"`
}

// RunOutcome is the result of one engine run within a scenario.
type RunOutcome struct {
	Result *engine.Result `json:"result"`
	Code   string         `json:"code,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every fetch, upsert and run outcome in order.
	Trace []TraceEvent `json:"trace"`

	// Runs holds one entry per engine run.
	Runs []RunOutcome `json:"runs"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Runs:   []RunOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends ev with the next sequence number.
func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

// run returns the outcome selected by a 1-based index, zero meaning last.
func (r *Result) run(n int) (RunOutcome, bool) {
	if len(r.Runs) == 0 {
		return RunOutcome{}, false
	}
	if n == 0 {
		return r.Runs[len(r.Runs)-1], true
	}
	if n < 1 || n > len(r.Runs) {
		return RunOutcome{}, false
	}
	return r.Runs[n-1], true
}
