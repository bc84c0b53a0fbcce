package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sensorsync/internal/engine"
	"github.com/roach88/sensorsync/internal/metrics"
	"github.com/roach88/sensorsync/internal/source"
	"github.com/roach88/sensorsync/internal/store"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Database string

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator

	// Clock allows overriding the run clock (for testing).
	// If nil, defaults to SystemClock.
	Clock engine.Clock
}

// SyncSummary is the output of a successful sync.
type SyncSummary struct {
	*engine.Result
}

// String renders the summary for text output.
func (s SyncSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ %s sync complete (run %s)\n", s.Mode, s.RunID)
	if s.Watermark != "" {
		fmt.Fprintf(&b, "  watermark: %s\n", s.Watermark)
	}
	fmt.Fprintf(&b, "  pages: %d  collected: %d\n", s.Pages, s.Collected)
	fmt.Fprintf(&b, "  inserted: %d  updated: %d  unchanged: %d\n", s.Inserted, s.Updated, s.Unchanged)
	if s.Collected > 0 {
		fmt.Fprintf(&b, "  range: %s .. %s\n", s.Earliest, s.Latest)
	}
	fmt.Fprintf(&b, "  stop: %s", s.StopReason)
	return b.String()
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one replication pass",
		Long: `Run one replication pass from the history endpoint into the store.

An empty store triggers a full backfill back to sync.earliest_date. A store
that already holds samples is brought up to date from the newest page only.

Exit codes:
  0  sync succeeded
  1  sync failed (source unavailable, malformed first page, decode error)
  2  command error (invalid configuration, store cannot be opened)

Example:
  sensorsync sync --config /etc/sensorsync.yaml
  sensorsync sync --db /tmp/samples.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid configuration", err, nil)
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}

	logger, closeLog := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close log file: %v\n", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Debug("opening store", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	srcOpts := cfg.SourceOptions()
	srcOpts.Logger = logger
	client, err := source.NewClient(srcOpts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid source settings", err, nil)
	}

	engOpts := append(cfg.EngineOptions(), engine.WithLogger(logger))
	if opts.RunIDGenerator != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}
	if opts.Clock != nil {
		engOpts = append(engOpts, engine.WithClock(opts.Clock))
	}
	eng := engine.New(client, st, engOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	res, runErr := eng.Run(ctx)
	finished := time.Now()

	if cfg.Metrics.Textfile != "" {
		m := metrics.New()
		m.ObserveRun(res, runErr, finished.Sub(started), finished)
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}

	if runErr != nil {
		return formatter.Fail(ExitFailure, "sync failed", runErr, res)
	}
	return formatter.Success(SyncSummary{Result: res})
}
