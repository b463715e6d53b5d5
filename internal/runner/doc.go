// Package runner turns validated run requests into executed pipelines.
// It owns the composition for one run: the single-instance lock, run
// directories, the reporter, the ledger row, and the notification
// publishes around the executor.
package runner
