package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sensorsync/internal/record"
)

// Outcome classifies the effect of an Upsert.
type Outcome int

const (
	// OutcomeInserted means no record existed under the key.
	OutcomeInserted Outcome = iota

	// OutcomeUpdated means a record with different values was overwritten.
	OutcomeUpdated

	// OutcomeUnchanged means an identical record was already stored.
	OutcomeUnchanged
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Upsert writes rec under record.Key(rec.CreatedAt), overwriting any existing
// entry with the same key. Writing the same record twice is a no-op.
//
// The existing fingerprint is read inside the same transaction as the write,
// so the returned Outcome reflects exactly what this call changed.
func (s *Store) Upsert(ctx context.Context, rec record.SensorRecord) (Outcome, error) {
	key := rec.Key()
	hash, err := record.Fingerprint(rec)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", key, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: begin tx: %w", key, err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT content_hash FROM sensor_records WHERE record_key = ?
	`, string(key)).Scan(&existing)

	var outcome Outcome
	switch {
	case errors.Is(err, sql.ErrNoRows):
		outcome = OutcomeInserted
	case err != nil:
		return 0, fmt.Errorf("upsert %s: select existing: %w", key, err)
	case existing == hash:
		return OutcomeUnchanged, nil
	default:
		outcome = OutcomeUpdated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sensor_records
		(record_key, created_at, temperature, humidity, soil, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_key) DO UPDATE SET
			created_at = excluded.created_at,
			temperature = excluded.temperature,
			humidity = excluded.humidity,
			soil = excluded.soil,
			content_hash = excluded.content_hash
	`,
		string(key),
		rec.CreatedAt,
		rec.Temperature,
		rec.Humidity,
		rec.Soil,
		hash,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert %s: write: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert %s: commit: %w", key, err)
	}

	return outcome, nil
}

// WriteRun records a sync run. Writing the same run ID again replaces the row,
// so a run may be recorded once at start and again when it finishes.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs
		(id, mode, status, started_at, finished_at, watermark, pages, collected,
		 inserted, updated, unchanged, stop_reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			watermark = excluded.watermark,
			pages = excluded.pages,
			collected = excluded.collected,
			inserted = excluded.inserted,
			updated = excluded.updated,
			unchanged = excluded.unchanged,
			stop_reason = excluded.stop_reason,
			error = excluded.error
	`,
		run.ID,
		run.Mode,
		run.Status,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Watermark,
		run.Pages,
		run.Collected,
		run.Inserted,
		run.Updated,
		run.Unchanged,
		run.StopReason,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return nil
}
