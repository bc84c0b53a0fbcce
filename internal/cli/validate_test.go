package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeValidate(t *testing.T, opts *RootOptions) (*bytes.Buffer, *bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	return buf, errBuf, runValidate(opts, cmd)
}

func TestValidate_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "https://sensors.example.com")

	buf, _, err := executeValidate(t, &RootOptions{Format: "text", Config: cfgPath})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Configuration valid")
}

func TestValidate_JSONIncludesEffectiveConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "https://sensors.example.com")

	buf, _, err := executeValidate(t, &RootOptions{Format: "json", Config: cfgPath})
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Valid  bool `json:"valid"`
			Config struct {
				Source struct {
					BaseURL    string `json:"base_url"`
					BatchLimit int    `json:"batch_limit"`
				} `json:"source"`
				Sync struct {
					EarliestDate string `json:"earliest_date"`
				} `json:"sync"`
			} `json:"config"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "https://sensors.example.com/", resp.Data.Config.Source.BaseURL)
	assert.Equal(t, 3, resp.Data.Config.Source.BatchLimit)
	assert.Equal(t, "2025-10-01T00:00:00Z", resp.Data.Config.Sync.EarliestDate)
}

func TestValidate_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("source:\n  base_url: https://x.example.com\nsync:\n  max_pages: 0\n"), 0644))

	buf, _, err := executeValidate(t, &RootOptions{Format: "text", Config: cfgPath})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [CONFIGURATION_ERROR]")
	assert.Contains(t, buf.String(), "sync.max_pages")
}

func TestValidate_UnknownField(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "typo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("sorce:\n  base_url: https://x.example.com\n"), 0644))

	_, _, err := executeValidate(t, &RootOptions{Format: "json", Config: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sorce")
}

func TestValidate_EnvFileSuppliesBaseURL(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "sensorsync.env")
	require.NoError(t, os.WriteFile(envPath, []byte("SENSORSYNC_BASE_URL=https://env.example.com\n"), 0644))

	buf, errBuf, err := executeValidate(t, &RootOptions{Format: "text", EnvFile: envPath, Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Configuration valid")
	assert.Contains(t, errBuf.String(), "source: https://env.example.com")
}
