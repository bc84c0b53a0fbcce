// Package store provides SQLite-backed durable storage for replicated sensor records.
//
// The store holds:
//   - Sensor records: one row per sample, keyed by record.Key(created_at)
//   - Sync runs: one row per sync run, for operators and the status command
//
// # Critical Patterns
//
// Key-Level Idempotency
//   - record_key is the PRIMARY KEY; writes overwrite, never duplicate
//   - Re-running a sync over overlapping data leaves the table unchanged
//
// Content Fingerprints
//   - content_hash holds record.Fingerprint of the stored values
//   - Upsert reports inserted / updated / unchanged by comparing fingerprints
//
// Watermark Ordering
//   - LatestTimestamp orders by created_at text, which is ISO-8601 and
//     therefore lexicographically sortable
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// The store assumes a single writer per sync run. Concurrent runs must be
// serialized externally (e.g. by the scheduler), otherwise two runs may read
// the same watermark before either writes.
package store
