// Package llm provides an OpenRouter-compatible chat client for the two
// language-model tasks in the pipeline.
//
// This package is used by:
//   - Quality step: score how well sampled frame descriptions match the
//     generation prompt (semantic alignment, 0-1)
//   - Script step: expand a one-line concept into an ordered scene list for
//     narrative runs
//
// # Scoring Logic
//
// The client sends the original prompt plus observed frame descriptions to
// the configured model with a structured prompt requesting JSON output. The
// response carries the alignment score, and a short reason the quality step
// records alongside its verdict.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
// When unconfigured, the quality step falls back to mechanical checks only.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.ScoreAlignment: prompt-versus-frames similarity for the quality step.
// Client.ExpandScript: concept-to-scenes expansion for narrative runs.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package llm
