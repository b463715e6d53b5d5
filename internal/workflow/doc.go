// Package workflow loads and prepares ComfyUI workflow graphs.
//
// A profile pairs an API-format graph (node id → class type plus
// inputs) with a mapping naming the nodes the runner rewrites before
// each submission: positive prompt, negative prompt, seed, size, and
// filename prefix. Profiles are JSON documents stored one per
// pipeline id under the configured workflow directory.
//
// Validate reports structural issues (empty graphs, nodes without a
// class type, inputs referencing nodes that do not exist) without
// failing, so callers can route the findings through the validation
// guard. Inject is strict: a missing or dangling mapping entry for a
// requested value is a hard mapping error.
package workflow
