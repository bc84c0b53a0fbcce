// Package record defines the sample and record types replicated by sensorsync.
//
// This package contains the data model and the pure transform from a raw
// source sample to a stored record. All other internal packages import
// record; record imports nothing internal.
//
// Key design constraints:
//   - Timestamps stay as the source's ISO-8601 strings and compare
//     lexicographically, exactly as the source orders them
//   - A record's key is derived only from created_at, so two samples with the
//     same created_at always land on the same key
//   - All JSON tags use snake_case
package record
