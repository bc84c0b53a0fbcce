package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// noEnv is an empty process environment.
func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// emptyEnvFile returns a path to an empty dotenv file so tests never read
// a .env from the working directory.
func emptyEnvFile(t *testing.T) string {
	return writeFile(t, t.TempDir(), "empty.env", "")
}

const fullYAML = `
source:
  base_url: https://sensors.example.com/api/
  feed: greenhouse
  batch_limit: 50
  timeout: 5s
  retry:
    max_attempts: 3
    initial_delay: 100ms
    max_delay: 2s
sync:
  earliest_date: "2025-09-15T00:00:00Z"
  max_pages: 20
  stuck_threshold: 3
store:
  path: /var/lib/sensorsync/samples.db
log:
  level: debug
  file: /var/log/sensorsync.log
metrics:
  textfile: /var/lib/node_exporter/sensorsync.prom
`

func TestLoad_FullFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensorsync.yaml", fullYAML)

	cfg, err := Load(Options{Path: path, EnvFile: emptyEnvFile(t), LookupEnv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, "https://sensors.example.com/api/", cfg.Source.BaseURL)
	assert.Equal(t, "greenhouse", cfg.Source.Feed)
	assert.Equal(t, 50, cfg.Source.BatchLimit)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, 3, cfg.Source.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Source.Retry.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Source.Retry.MaxDelay)
	assert.Equal(t, "2025-09-15T00:00:00Z", cfg.Sync.EarliestDate)
	assert.Equal(t, 20, cfg.Sync.MaxPages)
	assert.Equal(t, 3, cfg.Sync.StuckThreshold)
	assert.Equal(t, "/var/lib/sensorsync/samples.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/sensorsync.log", cfg.Log.File)
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Log.MaxSizeMB)
	assert.Equal(t, "/var/lib/node_exporter/sensorsync.prom", cfg.Metrics.Textfile)
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensorsync.yaml", "source:\n  base_url: http://localhost:8080\n")

	cfg, err := Load(Options{Path: path, EnvFile: emptyEnvFile(t), LookupEnv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, DefaultFeed, cfg.Source.Feed)
	assert.Equal(t, 200, cfg.Source.BatchLimit)
	assert.Equal(t, DefaultTimeout, cfg.Source.Timeout)
	assert.Equal(t, 1, cfg.Source.Retry.MaxAttempts)
	assert.Equal(t, DefaultEarliestDate, cfg.Sync.EarliestDate)
	assert.Equal(t, 1000, cfg.Sync.MaxPages)
	assert.Equal(t, 2, cfg.Sync.StuckThreshold)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_MissingBaseURLFails(t *testing.T) {
	_, err := Load(Options{EnvFile: emptyEnvFile(t), LookupEnv: noEnv})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "CONFIGURATION_ERROR")
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensorsync.yaml", "source:\n  base_url: http://x\n  bogus: 1\n")

	_, err := Load(Options{Path: path, EnvFile: emptyEnvFile(t), LookupEnv: noEnv})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "absent.yaml"), LookupEnv: noEnv})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "sensorsync.yaml", "")

	cfg, err := Load(Options{
		Path:      path,
		EnvFile:   emptyEnvFile(t),
		LookupEnv: envMap(map[string]string{"SENSORSYNC_BASE_URL": "http://localhost"}),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultFeed, cfg.Source.Feed)
}

func TestLoad_EnvFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensorsync.yaml", "source:\n  base_url: http://from-file\n")
	envFile := writeFile(t, dir, "sync.env", `
SENSORSYNC_BASE_URL=http://from-dotenv
SENSORSYNC_BATCH_LIMIT=75
SENSORSYNC_STORE_PATH=/tmp/dotenv.db
`)

	cfg, err := Load(Options{
		Path:    path,
		EnvFile: envFile,
		LookupEnv: envMap(map[string]string{
			"SENSORSYNC_STORE_PATH": "/tmp/env.db",
			"SENSORSYNC_LOG_LEVEL":  "WARN",
			"SENSORSYNC_TIMEOUT":    "45s",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "http://from-dotenv", cfg.Source.BaseURL)
	assert.Equal(t, 75, cfg.Source.BatchLimit)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 45*time.Second, cfg.Source.Timeout)
}

func TestLoad_MissingNamedEnvFileFails(t *testing.T) {
	_, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "absent.env"), LookupEnv: noEnv})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := Load(Options{
		EnvFile: emptyEnvFile(t),
		LookupEnv: envMap(map[string]string{
			"SENSORSYNC_BASE_URL":    "http://localhost",
			"SENSORSYNC_BATCH_LIMIT": "lots",
		}),
	})
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "source.batch_limit", ce.Field)
	assert.Contains(t, err.Error(), "SENSORSYNC_BATCH_LIMIT")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Source.BaseURL = "https://sensors.example.com"
		return cfg
	}

	require.NoError(t, Validate(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.Source.BaseURL = "sensors.example.com" }, "base_url"},
		{"empty feed", func(c *Config) { c.Source.Feed = "" }, "feed"},
		{"zero batch limit", func(c *Config) { c.Source.BatchLimit = 0 }, "batch_limit"},
		{"negative timeout", func(c *Config) { c.Source.Timeout = -time.Second }, "timeout"},
		{"zero attempts", func(c *Config) { c.Source.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"date only", func(c *Config) { c.Sync.EarliestDate = "2025-10-01" }, "earliest_date"},
		{"zero max pages", func(c *Config) { c.Sync.MaxPages = 0 }, "max_pages"},
		{"zero stuck threshold", func(c *Config) { c.Sync.StuckThreshold = 0 }, "stuck_threshold"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "path"},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, "level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_OffsetAndFractionalDates(t *testing.T) {
	for _, date := range []string{"2025-10-01T00:00:00+02:00", "2025-10-01T00:00:00.123Z"} {
		cfg := Default()
		cfg.Source.BaseURL = "http://localhost"
		cfg.Sync.EarliestDate = date
		assert.NoError(t, Validate(cfg), date)
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Default()
	cfg.Source.BaseURL = "http://localhost"
	cfg.Source.Retry.MaxAttempts = 4

	opts := cfg.SourceOptions()
	assert.Equal(t, "http://localhost", opts.BaseURL)
	assert.Equal(t, DefaultFeed, opts.Feed)
	assert.Equal(t, 200, opts.BatchLimit)
	assert.Equal(t, 4, opts.Retry.MaxAttempts)

	assert.Len(t, cfg.EngineOptions(), 3)
}
