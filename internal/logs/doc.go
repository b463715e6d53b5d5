// Package logs tails slate's log files with bounded memory. It backs
// the logs command: a negative offset reads the last N lines, follow
// mode polls the resume offset for new lines, and a missing file reads
// as empty so tailing can start before the first run writes its
// transcript.
package logs
