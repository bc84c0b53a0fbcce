package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sensorsync/internal/record"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with readings derived from n.
func createTestRecord(createdAt string, n float64) record.SensorRecord {
	return record.SensorRecord{
		CreatedAt:   createdAt,
		Temperature: 20 + n,
		Humidity:    40 + n,
		Soil:        500 + n,
	}
}
