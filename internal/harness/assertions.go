package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/sensorsync/internal/store"
	"github.com/roach88/sensorsync/internal/testutil"
)

// AssertionContext provides what assertions inspect after the runs.
type AssertionContext struct {
	Store  *store.Store
	Source *testutil.ScriptedSource
	Ctx    context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, describeEvent(event))
		}
	}

	return buf.String()
}

func describeEvent(ev TraceEvent) string {
	var s string
	switch ev.Type {
	case EventFetch:
		before := ev.Before
		if before == "" {
			before = "newest"
		}
		s = fmt.Sprintf("fetch before=%s samples=%d", before, ev.Samples)
	case EventUpsert:
		s = fmt.Sprintf("upsert %s %s", ev.Key, ev.Outcome)
	case EventRun:
		s = fmt.Sprintf("run mode=%s stop=%s inserted=%d updated=%d unchanged=%d",
			ev.Mode, ev.StopReason, ev.Inserted, ev.Updated, ev.Unchanged)
	default:
		s = ev.Type
	}
	if ev.Error != "" {
		s += " error=" + ev.Error
	}
	return s
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertMode:
		return assertMode(result, a)
	case AssertStopReason:
		return assertStopReason(result, a)
	case AssertRunError:
		return assertRunError(result, a)
	case AssertStoredCount:
		return assertStoredCount(result, a, actx)
	case AssertStoredKeys:
		return assertStoredKeys(result, a, actx)
	case AssertFetchCount:
		return assertFetchCount(result, a, actx)
	case AssertMinCreatedAt:
		return assertMinCreatedAt(result, a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func selectRun(result *Result, a Assertion) (RunOutcome, error) {
	run, ok := result.run(a.Run)
	if !ok {
		return RunOutcome{}, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("run %d", a.Run),
			Actual:   fmt.Sprintf("%d run(s) recorded", len(result.Runs)),
		}
	}
	return run, nil
}

func assertMode(result *Result, a Assertion) error {
	run, err := selectRun(result, a)
	if err != nil {
		return err
	}
	var mode string
	if run.Result != nil {
		mode = string(run.Result.Mode)
	}
	if mode != a.Mode {
		return &AssertionError{Type: a.Type, Expected: a.Mode, Actual: mode, Trace: result.Trace}
	}
	return nil
}

func assertStopReason(result *Result, a Assertion) error {
	run, err := selectRun(result, a)
	if err != nil {
		return err
	}
	var reason string
	if run.Result != nil {
		reason = string(run.Result.StopReason)
	}
	if reason != a.Reason {
		return &AssertionError{Type: a.Type, Expected: a.Reason, Actual: reason, Trace: result.Trace}
	}
	return nil
}

func assertRunError(result *Result, a Assertion) error {
	run, err := selectRun(result, a)
	if err != nil {
		return err
	}
	if run.Code == a.Code && (a.Code != "" || run.Error == "") {
		return nil
	}
	expected := a.Code
	if expected == "" {
		expected = "success"
	}
	actual := run.Error
	if actual == "" {
		actual = "success"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
}

func assertStoredCount(result *Result, a Assertion, actx *AssertionContext) error {
	count, err := actx.Store.Count(actx.Ctx)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d record(s)", a.Count),
			Actual:   fmt.Sprintf("%d record(s)", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertStoredKeys(result *Result, a Assertion, actx *AssertionContext) error {
	keys, err := actx.Store.ReadKeys(actx.Ctx)
	if err != nil {
		return fmt.Errorf("read keys: %w", err)
	}
	actual := make([]string, len(keys))
	for i, k := range keys {
		actual[i] = string(k)
	}
	expected := append([]string(nil), a.Keys...)
	sort.Strings(expected)

	if strings.Join(actual, ",") != strings.Join(expected, ",") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", expected),
			Actual:   fmt.Sprintf("%v", actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertFetchCount(result *Result, a Assertion, actx *AssertionContext) error {
	fetches := len(actx.Source.Fetches())
	if fetches != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d fetch(es)", a.Count),
			Actual:   fmt.Sprintf("%d fetch(es)", fetches),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertMinCreatedAt(result *Result, a Assertion, actx *AssertionContext) error {
	records, err := actx.Store.ReadAll(actx.Ctx)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	for _, rec := range records {
		if rec.CreatedAt < a.Value {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("every created_at >= %s", a.Value),
				Actual:   fmt.Sprintf("stored %s", rec.CreatedAt),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}
