package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/sensorsync/internal/record"
	"github.com/roach88/sensorsync/internal/source"
	"github.com/roach88/sensorsync/internal/store"
)

// Source yields pages of raw samples, newest first.
// Implemented by *source.Client (production) and scripted fakes (tests).
type Source interface {
	// FetchPage returns up to one page of samples strictly older than
	// before. An empty before requests the newest page.
	FetchPage(ctx context.Context, before string) (source.Page, error)
}

// Store is the keyed record store the engine replicates into.
// Implemented by *store.Store.
type Store interface {
	LatestTimestamp(ctx context.Context) (string, bool, error)
	Upsert(ctx context.Context, rec record.SensorRecord) (store.Outcome, error)
	WriteRun(ctx context.Context, run store.Run) error
}

// RunIDGenerator generates unique run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Mode is the replication strategy chosen at the start of a run.
type Mode string

const (
	// ModeBackfill walks the full history backwards from the newest sample.
	ModeBackfill Mode = "backfill"

	// ModeIncremental fetches only samples newer than the watermark.
	ModeIncremental Mode = "incremental"
)

// StopReason records why collection ended.
type StopReason string

const (
	StopStuck         StopReason = "stuck"
	StopDateFloor     StopReason = "date_floor"
	StopSourceDry     StopReason = "source_exhausted"
	StopMalformed     StopReason = "malformed_page"
	StopNoProgress    StopReason = "no_progress"
	StopHorizon       StopReason = "horizon_reached"
	StopPageLimit     StopReason = "page_limit"
	StopWatermark     StopReason = "watermark_reached"
	StopPageExhausted StopReason = "page_exhausted"
)

// DefaultProgressInterval is how many upserts pass between progress logs.
const DefaultProgressInterval = 100

// Result summarizes one run.
//
// Collected samples are newest first, so Latest is the first collected
// created_at and Earliest the last.
type Result struct {
	RunID      string     `json:"run_id"`
	Mode       Mode       `json:"mode"`
	Watermark  string     `json:"watermark,omitempty"`
	Pages      int        `json:"pages"`
	Collected  int        `json:"collected"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Unchanged  int        `json:"unchanged"`
	Earliest   string     `json:"earliest,omitempty"`
	Latest     string     `json:"latest,omitempty"`
	StopReason StopReason `json:"stop_reason,omitempty"`
}

// Written returns the number of records inserted or updated.
func (r *Result) Written() int {
	return r.Inserted + r.Updated
}

// Engine replicates a Source into a Store.
//
// Thread-safety: an Engine holds no per-run state and may be reused, but
// runs against the same store must not overlap.
type Engine struct {
	source           Source
	store            Store
	earliestDate     string
	maxPages         int
	stuckThreshold   int
	progressInterval int
	runIDs           RunIDGenerator
	clock            Clock
	logger           *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithEarliestDate sets the backfill date floor. Samples older than date are
// never stored by a backfill. An empty date disables the floor.
func WithEarliestDate(date string) Option {
	return func(e *Engine) {
		e.earliestDate = date
	}
}

// WithMaxPages sets the page fetch budget for a backfill.
//
// Default: 1000 pages (DefaultMaxPages)
func WithMaxPages(maxPages int) Option {
	return func(e *Engine) {
		e.maxPages = maxPages
	}
}

// WithStuckThreshold sets how many repeated cursors end a backfill.
//
// Default: 2 (DefaultStuckThreshold)
func WithStuckThreshold(n int) Option {
	return func(e *Engine) {
		e.stuckThreshold = n
	}
}

// WithProgressInterval sets how many upserts pass between progress logs.
func WithProgressInterval(n int) Option {
	return func(e *Engine) {
		e.progressInterval = n
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine reading from src and writing to st.
func New(src Source, st Store, opts ...Option) *Engine {
	e := &Engine{
		source:           src,
		store:            st,
		maxPages:         DefaultMaxPages,
		stuckThreshold:   DefaultStuckThreshold,
		progressInterval: DefaultProgressInterval,
		runIDs:           UUIDv7Generator{},
		clock:            SystemClock{},
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.progressInterval <= 0 {
		e.progressInterval = DefaultProgressInterval
	}
	return e
}

// Run performs one replication run.
//
// The mode is decided once from the store's watermark. On success the
// returned Result describes what was collected and written. On failure the
// Result holds whatever was known when the run aborted, and the error is a
// *SyncError. Every run, successful or not, is recorded in the run log.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	started := e.clock.Now()
	res := &Result{RunID: e.runIDs.Generate()}
	log := e.logger.With("run_id", res.RunID)

	err := e.run(ctx, res, log)
	e.recordRun(ctx, res, started, err, log)
	if err != nil {
		var se *SyncError
		if errors.As(err, &se) {
			se.RunID = res.RunID
		}
		log.Error("sync failed", "mode", res.Mode, "error", err)
		return res, err
	}

	log.Info("sync complete",
		"mode", res.Mode,
		"pages", res.Pages,
		"collected", res.Collected,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"earliest", res.Earliest,
		"latest", res.Latest,
		"stop_reason", res.StopReason,
	)
	return res, nil
}

func (e *Engine) run(ctx context.Context, res *Result, log *slog.Logger) error {
	watermark, ok, err := e.store.LatestTimestamp(ctx)
	if err != nil {
		return &SyncError{Code: ErrCodeStoreFailure, Message: "read watermark", Err: err}
	}

	var samples []record.RawSample
	if ok {
		res.Mode = ModeIncremental
		res.Watermark = watermark
		log.Info("incremental sync", "watermark", watermark)
		samples, err = e.collectIncremental(ctx, watermark, res, log)
	} else {
		res.Mode = ModeBackfill
		log.Info("full backfill", "earliest_date", e.earliestDate, "max_pages", e.maxPages)
		samples, err = e.collectBackfill(ctx, res, log)
	}
	if err != nil {
		return err
	}

	res.Collected = len(samples)
	if len(samples) > 0 {
		res.Latest = samples[0].CreatedAt
		res.Earliest = samples[len(samples)-1].CreatedAt
	}
	return e.persist(ctx, samples, res, log)
}

// collectBackfill walks the source backwards from the newest page.
func (e *Engine) collectBackfill(ctx context.Context, res *Result, log *slog.Logger) ([]record.RawSample, error) {
	quota := NewPageQuota(e.maxPages)
	stuck := NewStuckDetector(e.stuckThreshold)

	page, err := e.source.FetchPage(ctx, "")
	quota.Take()
	res.Pages = quota.Fetched()
	if err != nil {
		return nil, wrapFetchError(err, "")
	}
	if len(page.Data) == 0 {
		return nil, &SyncError{Code: ErrCodeEmptySource, Message: "newest page has no samples"}
	}

	collected := make([]record.RawSample, 0, len(page.Data))
	collected = append(collected, page.Data...)
	log.Info("fetched batch", "page", quota.Fetched(), "samples", len(page.Data), "total", len(collected))

	for {
		cursor := collected[len(collected)-1].CreatedAt
		// Guard only: the strict upper bound in window moves the cursor or ends the walk.
		if stuck.Observe(cursor) {
			log.Info("cursor stuck, no older data", "cursor", cursor, "repeats", stuck.Repeats())
			res.StopReason = StopStuck
			break
		}

		if !record.Before(e.earliestDate, cursor) {
			collected = atOrAfter(collected, e.earliestDate)
			log.Info("reached earliest date", "cursor", cursor, "earliest_date", e.earliestDate)
			res.StopReason = StopDateFloor
			break
		}

		if quota.Exhausted() {
			log.Warn("page budget exhausted", "max_pages", quota.Max(), "total", len(collected))
			res.StopReason = StopPageLimit
			break
		}

		page, err := e.source.FetchPage(ctx, cursor)
		quota.Take()
		res.Pages = quota.Fetched()
		if err != nil {
			if source.IsMalformed(err) {
				log.Warn("malformed page, ending backfill", "cursor", cursor, "error", err)
				res.StopReason = StopMalformed
				break
			}
			return nil, wrapFetchError(err, cursor)
		}
		if len(page.Data) == 0 {
			log.Info("no more data", "cursor", cursor)
			res.StopReason = StopSourceDry
			break
		}

		batch := window(page.Data, e.earliestDate, cursor)
		if len(batch) == 0 {
			log.Info("no samples in window", "cursor", cursor, "page_samples", len(page.Data))
			res.StopReason = StopNoProgress
			break
		}

		collected = append(collected, batch...)
		log.Info("fetched batch", "page", quota.Fetched(), "samples", len(batch), "total", len(collected))

		if len(batch) < len(page.Data) {
			log.Info("page touched the horizon", "kept", len(batch), "page_samples", len(page.Data))
			res.StopReason = StopHorizon
			break
		}
	}

	return collected, nil
}

// collectIncremental fetches the newest page and keeps samples newer than
// the watermark.
func (e *Engine) collectIncremental(ctx context.Context, watermark string, res *Result, log *slog.Logger) ([]record.RawSample, error) {
	page, err := e.source.FetchPage(ctx, "")
	res.Pages = 1
	if err != nil {
		return nil, wrapFetchError(err, "")
	}

	var newer []record.RawSample
	for _, s := range page.Data {
		if !record.Before(watermark, s.CreatedAt) {
			res.StopReason = StopWatermark
			break
		}
		newer = append(newer, s)
	}
	if res.StopReason == "" {
		res.StopReason = StopPageExhausted
		if len(newer) > 0 {
			// Every sample on the page is new; older unsynced samples may
			// exist beyond it.
			log.Warn("newest page entirely past watermark, samples may be missing",
				"watermark", watermark,
				"samples", len(newer),
			)
		}
	}

	log.Info("fetched new samples", "samples", len(newer))
	return newer, nil
}

// persist decodes every sample, then upserts the records.
func (e *Engine) persist(ctx context.Context, samples []record.RawSample, res *Result, log *slog.Logger) error {
	records, err := record.TransformAll(samples)
	if err != nil {
		return &SyncError{Code: ErrCodeDecodeError, Message: "collected samples failed to decode", Err: err}
	}

	for i, rec := range records {
		outcome, err := e.store.Upsert(ctx, rec)
		if err != nil {
			return &SyncError{
				Code:    ErrCodeStoreFailure,
				Message: fmt.Sprintf("upsert %s", rec.Key()),
				Err:     err,
			}
		}
		switch outcome {
		case store.OutcomeInserted:
			res.Inserted++
		case store.OutcomeUpdated:
			res.Updated++
		case store.OutcomeUnchanged:
			res.Unchanged++
		}
		if (i+1)%e.progressInterval == 0 {
			log.Info("saving records", "saved", i+1, "total", len(records))
		}
	}
	return nil
}

// recordRun writes the run log row. A failure here is logged, not returned.
func (e *Engine) recordRun(ctx context.Context, res *Result, started time.Time, runErr error, log *slog.Logger) {
	run := store.Run{
		ID:         res.RunID,
		Mode:       string(res.Mode),
		Status:     store.RunStatusSucceeded,
		StartedAt:  started,
		FinishedAt: e.clock.Now(),
		Watermark:  res.Watermark,
		Pages:      res.Pages,
		Collected:  res.Collected,
		Inserted:   res.Inserted,
		Updated:    res.Updated,
		Unchanged:  res.Unchanged,
		StopReason: string(res.StopReason),
	}
	if runErr != nil {
		run.Status = store.RunStatusFailed
		run.Error = runErr.Error()
	}
	// The run's own context may already be cancelled; the log row is still wanted.
	if err := e.store.WriteRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("record run", "error", err)
	}
}

func wrapFetchError(err error, cursor string) error {
	code := ErrCodeSourceUnavailable
	msg := "source unavailable"
	if source.IsMalformed(err) {
		code = ErrCodeMalformedPage
		msg = "malformed page"
	}
	return &SyncError{Code: code, Message: msg, Cursor: cursor, Err: err}
}

// atOrAfter keeps samples at or after floor.
func atOrAfter(samples []record.RawSample, floor string) []record.RawSample {
	kept := samples[:0:0]
	for _, s := range samples {
		if record.AtOrAfter(s.CreatedAt, floor) {
			kept = append(kept, s)
		}
	}
	return kept
}

// window keeps samples with floor <= created_at < cursor.
func window(samples []record.RawSample, floor, cursor string) []record.RawSample {
	var kept []record.RawSample
	for _, s := range samples {
		if record.AtOrAfter(s.CreatedAt, floor) && record.Before(s.CreatedAt, cursor) {
			kept = append(kept, s)
		}
	}
	return kept
}
