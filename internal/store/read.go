package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sensorsync/internal/record"
)

// LatestTimestamp returns the created_at of the most recent stored record.
// The boolean is false when the store holds no records.
func (s *Store) LatestTimestamp(ctx context.Context) (string, bool, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at FROM sensor_records
		ORDER BY created_at DESC, record_key DESC
		LIMIT 1
	`).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest timestamp: %w", err)
	}
	return createdAt, true, nil
}

// Get retrieves a single record by key.
// Returns sql.ErrNoRows if not found.
func (s *Store) Get(ctx context.Context, key record.RecordKey) (record.SensorRecord, error) {
	var rec record.SensorRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT created_at, temperature, humidity, soil
		FROM sensor_records
		WHERE record_key = ?
	`, string(key)).Scan(&rec.CreatedAt, &rec.Temperature, &rec.Humidity, &rec.Soil)
	if err != nil {
		return record.SensorRecord{}, err
	}
	return rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ReadAll returns every stored record, newest first.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ReadAll(ctx context.Context) ([]record.SensorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, temperature, humidity, soil
		FROM sensor_records
		ORDER BY created_at DESC, record_key DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.SensorRecord{}
	for rows.Next() {
		var rec record.SensorRecord
		if err := rows.Scan(&rec.CreatedAt, &rec.Temperature, &rec.Humidity, &rec.Soil); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// ReadKeys returns every stored record key in ascending order.
func (s *Store) ReadKeys(ctx context.Context) ([]record.RecordKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_key FROM sensor_records ORDER BY record_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []record.RecordKey{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, record.RecordKey(k))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return keys, nil
}

// ReadRuns returns up to limit sync runs, most recent first.
// A non-positive limit returns all runs.
func (s *Store) ReadRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, mode, status, started_at, finished_at, watermark, pages, collected,
		       inserted, updated, unchanged, stop_reason, error
		FROM sync_runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var startedAt, finishedAt string
	if err := rows.Scan(
		&run.ID, &run.Mode, &run.Status, &startedAt, &finishedAt, &run.Watermark,
		&run.Pages, &run.Collected, &run.Inserted, &run.Updated, &run.Unchanged,
		&run.StopReason, &run.Error,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return Run{}, fmt.Errorf("scan run %s: finished_at: %w", run.ID, err)
	}
	return run, nil
}
