package pipeline

import (
	"context"
	"strings"
)

// Status is the terminal state of a step invocation.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Result is produced exactly once per step invocation.
type Result struct {
	Status         Status
	ContextUpdates map[string]any
	ErrorMessage   string
	// Warning carries a soft-failure note recorded in the run's warning
	// list without changing the step status.
	Warning string
}

// Succeeded builds a successful result carrying context updates.
func Succeeded(updates map[string]any) Result {
	return Result{Status: StatusSucceeded, ContextUpdates: updates}
}

// Warn builds a successful result that also records a warning.
func Warn(updates map[string]any, warning string) Result {
	return Result{Status: StatusSucceeded, ContextUpdates: updates, Warning: strings.TrimSpace(warning)}
}

// Skipped builds a skipped result recording the reason under the given
// context key.
func Skipped(key, reason string) Result {
	updates := map[string]any{}
	if key != "" {
		updates[key] = reason
	}
	return Result{Status: StatusSkipped, ContextUpdates: updates}
}

// Failed builds a failed result from an error.
func Failed(err error) Result {
	message := "step failed"
	if err != nil {
		message = err.Error()
	}
	return Result{Status: StatusFailed, ErrorMessage: message}
}

// FailedMessage builds a failed result from message text.
func FailedMessage(message string) Result {
	return Result{Status: StatusFailed, ErrorMessage: strings.TrimSpace(message)}
}

// Cancelled builds a cancelled result.
func Cancelled() Result {
	return Result{Status: StatusCancelled}
}

// Body is the single interface external collaborators implement to plug
// into a pipeline. Bodies convert their own failures into Results; the
// executor treats a panic as a fatal failed result.
type Body interface {
	Execute(ctx context.Context, rc *Context) Result
}

// BodyFunc adapts a function to the Body interface.
type BodyFunc func(ctx context.Context, rc *Context) Result

func (f BodyFunc) Execute(ctx context.Context, rc *Context) Result {
	return f(ctx, rc)
}

// Step is a named unit of pipeline work. Steps are defined statically at
// construction and invoked at most once per run.
type Step struct {
	ID          string
	Description string
	// DependsOn lists prerequisite step ids within the same definition.
	// Only declared edges are honored; there is no transitive inference.
	DependsOn []string
	// Critical marks steps whose failure aborts the remaining pipeline.
	// Non-critical failures downgrade to warnings. The executor owns this
	// decision; bodies return honest failures.
	Critical bool
	Body     Body
}
