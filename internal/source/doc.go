// Package source fetches pages of sensor samples from the remote history endpoint.
//
// The endpoint is queried with:
//
//	GET {base}/history?feed=<feed>&limit=<n>[&before_created_at=<cursor>]
//
// and answers with {"data": [{"created_at": ..., "value": ...}, ...]} ordered
// newest first. An omitted cursor yields the newest page.
//
// # Failure Classes
//
//   - SOURCE_UNAVAILABLE: transport failure or a body that is not JSON
//   - MALFORMED_PAGE: a JSON body without a data field
//
// Retries are opt-in (RetryPolicy.MaxAttempts > 1) and only ever apply to
// SOURCE_UNAVAILABLE. A malformed page is never retried.
package source
