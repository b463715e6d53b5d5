// Package preflight provides readiness checks for the external services,
// tools, and filesystem paths that slate depends on.
//
// These checks run in two contexts:
//   - The runner executes them as the first pipeline step of every run.
//     If a required check fails, the run aborts before any GPU time is
//     spent on a doomed generation.
//   - The CLI "slate preflight" command runs the same checks standalone
//     so a host can be verified before queueing work.
//
// Each check is gated by its config toggle -- the FastVideo probe only
// runs when that backend is active, the LLM probe only when QA scoring
// is enabled.
package preflight
