// Package engine implements the sensorsync replication engine.
//
// A run reads the store's watermark once and picks one of two modes:
//
// Backfill (store empty):
//  1. Fetch the newest page; a malformed or empty first page fails the run
//  2. Walk backwards, using the oldest collected created_at as the cursor
//  3. Stop when the cursor stalls, reaches the earliest date, the source
//     runs dry, a page crosses the earliest date, or the page budget is spent
//  4. Transform every collected sample, then upsert them
//
// Incremental (watermark present):
//  1. Fetch only the newest page
//  2. Keep samples strictly newer than the watermark, stopping at the first
//     sample at or before it
//  3. Transform and upsert what was kept
//
// Pagination is strictly sequential: the cursor of fetch N+1 is derived from
// the result of fetch N. The engine never runs two fetches at once and never
// writes concurrently. Callers must serialize runs against the same store.
//
// Error policy:
//   - MALFORMED_PAGE or an empty page inside the backfill loop ends collection
//     normally; whatever was gathered is persisted
//   - SOURCE_UNAVAILABLE and DECODE_ERROR abort the run
//   - All samples are decoded before the first write, so a DECODE_ERROR
//     leaves the store untouched
package engine
