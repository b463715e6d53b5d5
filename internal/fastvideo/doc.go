// Package fastvideo talks to the local FastVideo sidecar over HTTP.
//
// The sidecar wraps a text-to-video diffusion model behind two endpoints:
// /health for a cheap liveness probe and /generate, which blocks until the
// video is rendered and returns its path. Generation failures are classified
// for the executor; a 507 from the sidecar means CUDA ran out of memory and
// maps to generation_blocked, connection refusals to api_unavailable.
package fastvideo
