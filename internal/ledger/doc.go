// Package ledger persists a durable history of runs in SQLite.
//
// The run directory holds the full artifacts for each run; the ledger holds
// the queryable index over them: status, outputs, QA verdicts, and timing.
// Writes retry on SQLITE_BUSY so a CLI invocation racing a finishing run
// never drops a record.
package ledger
