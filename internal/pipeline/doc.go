// Package pipeline implements the dependency-ordered step executor at the
// core of slate.
//
// A Definition declares named steps and their prerequisite edges; the
// Executor resolves a deterministic topological order, invokes each step
// body exactly once, and merges returned context updates into the shared run
// Context between steps. Failure handling follows each step's Critical flag:
// critical failures abort the remaining steps, non-critical ones downgrade
// to recorded warnings. An Observer receives every transition so progress
// can be reported without coupling the executor to persistence.
package pipeline
