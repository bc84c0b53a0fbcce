package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sensorsync/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
}

// String renders the result for text output.
func (r ValidationResult) String() string {
	if !r.Valid {
		return "✗ Configuration invalid"
	}
	return "✓ Configuration valid"
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without syncing",
		Long: `Load the configuration from defaults, the YAML file, the env file and
the environment, and check it against the schema. Nothing is fetched and the
store is not opened.

Example:
  sensorsync validate --config /etc/sensorsync.yaml
  sensorsync validate --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return formatter.Fail(ExitFailure, "configuration invalid", err, nil)
	}

	formatter.VerboseLog("source: %s feed=%s limit=%d", cfg.Source.BaseURL, cfg.Source.Feed, cfg.Source.BatchLimit)
	formatter.VerboseLog("store: %s", cfg.Store.Path)
	return formatter.Success(ValidationResult{Valid: true, Config: cfg})
}
