package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sensorsync/internal/record"
	"github.com/roach88/sensorsync/internal/store"
)

func seedStore(t *testing.T, path string, runs int) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	for _, ts := range []string{"2025-10-04T00:00:00Z", "2025-10-05T00:00:00Z"} {
		_, err := st.Upsert(ctx, record.SensorRecord{CreatedAt: ts, Temperature: 20, Humidity: 40, Soil: 500})
		require.NoError(t, err)
	}
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < runs; i++ {
		require.NoError(t, st.WriteRun(ctx, store.Run{
			ID:         "run-" + string(rune('a'+i)),
			Mode:       "incremental",
			Status:     store.RunStatusSucceeded,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Second),
			Inserted:   i,
		}))
	}
}

func executeStatus(t *testing.T, opts *StatusOptions) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewStatusCommand(opts.RootOptions)
	cmd.SetOut(buf)
	return buf, runStatus(opts, cmd)
}

func TestStatus_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")

	buf, err := executeStatus(t, &StatusOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    path,
		Runs:        DefaultStatusRuns,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Records: 0")
	assert.Contains(t, out, "Watermark: none (next sync is a full backfill)")
	assert.Contains(t, out, "Runs: none")
}

func TestStatus_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	seedStore(t, path, 3)

	buf, err := executeStatus(t, &StatusOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    path,
		Runs:        2,
	})
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   StatusReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Records)
	assert.Equal(t, "2025-10-05T00:00:00Z", resp.Data.Watermark)
	assert.Len(t, resp.Data.Runs, 2)
}

func TestStatus_TextListsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	seedStore(t, path, 1)

	buf, err := executeStatus(t, &StatusOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    path,
		Runs:        0,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Watermark: 2025-10-05T00:00:00Z")
	assert.Contains(t, out, "2025-11-01T00:00:00Z  incremental succeeded")
}

func TestStatusReport_StringShowsRunError(t *testing.T) {
	report := StatusReport{
		StorePath: "samples.db",
		Runs: []store.Run{{
			Mode:      "backfill",
			Status:    store.RunStatusFailed,
			StartedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			Error:     "EMPTY_SOURCE: newest page has no samples",
		}},
	}
	assert.Contains(t, report.String(), `error="EMPTY_SOURCE: newest page has no samples"`)
}

func TestStatus_UnopenableStore(t *testing.T) {
	_, err := executeStatus(t, &StatusOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    filepath.Join(t.TempDir(), "missing", "samples.db"),
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
