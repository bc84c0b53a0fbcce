package config

import (
	"time"

	"github.com/roach88/sensorsync/internal/engine"
	"github.com/roach88/sensorsync/internal/source"
)

// Default values.
const (
	DefaultFeed           = "json"
	DefaultEarliestDate   = "2025-10-01T00:00:00Z"
	DefaultTimeout        = 30 * time.Second
	DefaultStorePath      = "sensorsync.db"
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 10
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAgeDays  = 28
	DefaultRetryAttempts  = 1
	DefaultRetryInitDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 10 * time.Second
)

// Config is the complete sensorsync configuration.
//
// The json tags name the fields seen by the validation schema; the yaml tags
// name the fields of the configuration file. They are kept identical.
type Config struct {
	Source  SourceConfig  `yaml:"source" json:"source"`
	Sync    SyncConfig    `yaml:"sync" json:"sync"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SourceConfig locates the remote history endpoint.
type SourceConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Feed       string        `yaml:"feed" json:"feed"`
	BatchLimit int           `yaml:"batch_limit" json:"batch_limit"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	Retry      RetryConfig   `yaml:"retry" json:"retry"`
}

// RetryConfig bounds retries of unavailable-source failures.
// MaxAttempts of 1 disables retrying.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
}

// SyncConfig tunes the engine.
type SyncConfig struct {
	EarliestDate   string `yaml:"earliest_date" json:"earliest_date"`
	MaxPages       int    `yaml:"max_pages" json:"max_pages"`
	StuckThreshold int    `yaml:"stuck_threshold" json:"stuck_threshold"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LogConfig controls logging. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// MetricsConfig controls the Prometheus textfile export. An empty Textfile
// disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile,omitempty"`
}

// Default returns a configuration holding every default. BaseURL has no
// default and must be supplied.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Feed:       DefaultFeed,
			BatchLimit: source.DefaultBatchLimit,
			Timeout:    DefaultTimeout,
			Retry: RetryConfig{
				MaxAttempts:  DefaultRetryAttempts,
				InitialDelay: DefaultRetryInitDelay,
				MaxDelay:     DefaultRetryMaxDelay,
			},
		},
		Sync: SyncConfig{
			EarliestDate:   DefaultEarliestDate,
			MaxPages:       engine.DefaultMaxPages,
			StuckThreshold: engine.DefaultStuckThreshold,
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}

// SourceOptions converts the source settings for source.NewClient.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		BaseURL:    c.Source.BaseURL,
		Feed:       c.Source.Feed,
		BatchLimit: c.Source.BatchLimit,
		Timeout:    c.Source.Timeout,
		Retry: source.RetryPolicy{
			MaxAttempts:  c.Source.Retry.MaxAttempts,
			InitialDelay: c.Source.Retry.InitialDelay,
			MaxDelay:     c.Source.Retry.MaxDelay,
		},
	}
}

// EngineOptions converts the sync settings for engine.New.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithEarliestDate(c.Sync.EarliestDate),
		engine.WithMaxPages(c.Sync.MaxPages),
		engine.WithStuckThreshold(c.Sync.StuckThreshold),
	}
}
