package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/sensorsync/internal/engine"
	"github.com/roach88/sensorsync/internal/record"
	"github.com/roach88/sensorsync/internal/source"
	"github.com/roach88/sensorsync/internal/store"
	"github.com/roach88/sensorsync/internal/testutil"
)

// Harness wires a scenario's scripted source and a fresh store to the engine
// and records what passes between them.
type Harness struct {
	store  *store.Store
	source *testutil.ScriptedSource
	result *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database and seed it
// 2. Script the source from the scenario's pages
// 3. Run the engine the requested number of times
// 4. Evaluate assertions against the store and run outcomes
//
// A run that fails is not an execution error; its code is recorded and left
// to run_error assertions. An error is returned only when the scenario could
// not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i, rec := range scenario.Seed {
		if _, err := st.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to seed record %d: %w", i, err)
		}
	}

	h := &Harness{
		store:  st,
		source: scriptSource(scenario.Pages),
		result: NewResult(),
	}

	eng := engine.New(h, h,
		engine.WithEarliestDate(scenario.earliestDate()),
		engine.WithMaxPages(scenario.Config.MaxPages),
		engine.WithStuckThreshold(scenario.Config.StuckThreshold),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithClock(testutil.NewStepClock(time.Time{}, time.Second)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	for i := 0; i < scenario.runCount(); i++ {
		res, runErr := eng.Run(ctx)
		h.recordRun(res, runErr)
	}

	actx := &AssertionContext{
		Store:  st,
		Source: h.source,
		Ctx:    ctx,
	}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

func scriptSource(pages []PageStep) *testutil.ScriptedSource {
	src := testutil.NewScriptedSource()
	for _, page := range pages {
		switch page.Error {
		case PageErrorMalformed:
			src.Fail(page.Before, testutil.Malformed(page.Before))
		case PageErrorUnavailable:
			src.Fail(page.Before, testutil.Unavailable(page.Before))
		default:
			samples := make([]record.RawSample, len(page.Samples))
			for i, s := range page.Samples {
				samples[i] = s.Raw()
			}
			src.Page(page.Before, samples...)
		}
	}
	return src
}

// FetchPage implements engine.Source by delegating to the scripted source.
func (h *Harness) FetchPage(ctx context.Context, before string) (source.Page, error) {
	page, err := h.source.FetchPage(ctx, before)
	ev := TraceEvent{Type: EventFetch, Before: before, Samples: len(page.Data)}
	if err != nil {
		ev.Error = sourceErrorCode(err)
	}
	h.result.addEvent(ev)
	return page, err
}

// LatestTimestamp implements engine.Store.
func (h *Harness) LatestTimestamp(ctx context.Context) (string, bool, error) {
	return h.store.LatestTimestamp(ctx)
}

// Upsert implements engine.Store and records the outcome.
func (h *Harness) Upsert(ctx context.Context, rec record.SensorRecord) (store.Outcome, error) {
	outcome, err := h.store.Upsert(ctx, rec)
	if err != nil {
		return outcome, err
	}
	h.result.addEvent(TraceEvent{Type: EventUpsert, Key: string(rec.Key()), Outcome: outcome.String()})
	return outcome, nil
}

// WriteRun implements engine.Store.
func (h *Harness) WriteRun(ctx context.Context, run store.Run) error {
	return h.store.WriteRun(ctx, run)
}

func (h *Harness) recordRun(res *engine.Result, runErr error) {
	outcome := RunOutcome{Result: res}
	ev := TraceEvent{Type: EventRun}
	if res != nil {
		ev.Mode = string(res.Mode)
		ev.StopReason = string(res.StopReason)
		ev.Inserted = res.Inserted
		ev.Updated = res.Updated
		ev.Unchanged = res.Unchanged
	}
	if runErr != nil {
		outcome.Code = string(engine.Code(runErr))
		outcome.Error = runErr.Error()
		ev.Error = outcome.Code
	}
	h.result.Runs = append(h.result.Runs, outcome)
	h.result.addEvent(ev)
}

func sourceErrorCode(err error) string {
	switch {
	case source.IsMalformed(err):
		return string(source.ErrCodeMalformedPage)
	case source.IsUnavailable(err):
		return string(source.ErrCodeSourceUnavailable)
	default:
		return "UNSCRIPTED"
	}
}
