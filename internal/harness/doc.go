// Package harness runs scripted sync scenarios end to end.
//
// A scenario is a YAML file describing:
//   - records already in the store (seed)
//   - the pages a source returns, keyed by the cursor that requests them
//   - engine settings (earliest date, page budget, stuck threshold)
//   - how many runs to perform
//   - assertions on the final store and on each run's outcome
//
// Unlike a unit test with fakes on both sides, the harness drives the real
// engine against a real in-memory SQLite store. Only the source is scripted.
// Every fetch, upsert and run outcome is recorded in a trace, which can be
// compared byte-for-byte against a golden file in canonical JSON.
//
// A fetch for a cursor the scenario does not script fails the run. A
// scenario that says "page 3 is never requested" therefore needs no extra
// assertion: requesting it shows up as a run error.
package harness
