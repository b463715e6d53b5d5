// Package comfy talks to a ComfyUI server over its HTTP API.
//
// The client covers the three endpoints the pipeline needs: /system_stats
// for preflight VRAM checks, /prompt for queueing a prepared workflow graph,
// and /upload/image for pushing keyframes into the server's input directory.
// Completion is not tracked here; generation steps watch for the done marker
// the workflow's output node writes next to the rendered video.
//
// Failures come back as classified pipeline errors so the executor and
// guards can route them without string matching at the call site: a 400
// carrying node_errors means the workflow graph itself is broken
// (workflow_invalid), upload failures are image_upload_failed, and
// transport-level errors classify by message (connection refused maps to
// api_unavailable, client timeouts to api_timeout).
package comfy
