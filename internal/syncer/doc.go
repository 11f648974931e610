// Package syncer drives a sync run: source batches are read, transformed into
// search documents, optionally embedded, and bulk loaded, one batch at a time.
//
// The pipeline is sequential. A batch is fully processed before the next one
// is read, the running counters live in a single types.RunStats value owned by
// Run, and cancellation is only observed between batches. Batch-level
// failures are counted and the run moves on; only a failure to open the
// source aborts a run, and a failure to fetch a batch ends it early with a
// truncated summary.
package syncer
