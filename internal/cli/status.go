package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sensorsync/internal/store"
)

// DefaultStatusRuns is how many recent runs status shows.
const DefaultStatusRuns = 5

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
	Runs     int
}

// StatusReport describes the store.
type StatusReport struct {
	StorePath string      `json:"store_path"`
	Records   int         `json:"records"`
	Watermark string      `json:"watermark,omitempty"`
	Runs      []store.Run `json:"runs"`
}

// String renders the report for text output.
func (r StatusReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Store: %s\n", r.StorePath)
	fmt.Fprintf(&b, "Records: %d\n", r.Records)
	if r.Watermark == "" {
		b.WriteString("Watermark: none (next sync is a full backfill)\n")
	} else {
		fmt.Fprintf(&b, "Watermark: %s\n", r.Watermark)
	}
	if len(r.Runs) == 0 {
		b.WriteString("Runs: none")
		return b.String()
	}
	b.WriteString("Runs:")
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "\n  %s  %-11s %-9s inserted=%d updated=%d pages=%d",
			run.StartedAt.Format("2006-01-02T15:04:05Z07:00"), run.Mode, run.Status,
			run.Inserted, run.Updated, run.Pages)
		if run.Error != "" {
			fmt.Fprintf(&b, "  error=%q", run.Error)
		}
	}
	return b.String()
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store watermark, record count and recent runs",
		Long: `Show what the store holds: the number of records, the latest stored
timestamp (the watermark the next incremental sync starts from) and the most
recent sync runs.

Example:
  sensorsync status --config /etc/sensorsync.yaml
  sensorsync status --db /tmp/samples.db --runs 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.Flags().IntVar(&opts.Runs, "runs", DefaultStatusRuns, "number of recent runs to show (0 for all)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return formatter.Fail(ExitCommandError, "invalid configuration", err, nil)
		}
		path = cfg.Store.Path
	}

	report, err := readStatus(cmd.Context(), path, opts.Runs)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read store", err)
	}
	return formatter.Success(report)
}

func readStatus(ctx context.Context, path string, runs int) (StatusReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(path)
	if err != nil {
		return StatusReport{}, err
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{StorePath: path}
	if report.Records, err = st.Count(ctx); err != nil {
		return StatusReport{}, err
	}
	if report.Watermark, _, err = st.LatestTimestamp(ctx); err != nil {
		return StatusReport{}, err
	}
	if report.Runs, err = st.ReadRuns(ctx, runs); err != nil {
		return StatusReport{}, err
	}
	return report, nil
}
