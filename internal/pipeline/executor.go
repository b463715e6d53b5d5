package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"slate/internal/logging"
	"slate/internal/recovery"
)

// Outcome is the terminal summary of one run. Status is succeeded, failed,
// or cancelled; Err is set only for failed runs.
type Outcome struct {
	Status       Status
	ErrorMessage string
	Err          *recovery.PipelineError
	Warnings     []string
	Results      map[string]Result
	Order        []string
}

// Executor runs pipeline definitions one step at a time. Steps share a
// single GPU-backed generation backend, so two step lifecycles never
// overlap.
type Executor struct {
	logger   *slog.Logger
	observer Observer
}

// Option customizes the executor.
type Option func(*Executor)

// WithObserver wires a progress observer.
func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewExecutor constructs an executor. A nil logger falls back to the no-op
// logger.
func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:   logging.NewComponentLogger(logger, "executor"),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run invokes every step of the definition exactly once in dependency
// order, merging context updates between steps. Configuration errors (cycle,
// unknown dependency, missing body) reject the run before any body runs.
func (e *Executor) Run(ctx context.Context, def Definition, rc *Context) Outcome {
	if rc == nil {
		rc = NewContext()
	}

	outcome := Outcome{
		Results: make(map[string]Result, def.stepTotal()),
	}

	order, err := ExecutionOrder(def)
	if err != nil {
		perr := recovery.Wrap(recovery.CategoryValidationFailed, "pipeline", "resolve execution order", err)
		outcome.Status = StatusFailed
		outcome.Err = perr
		outcome.ErrorMessage = perr.Message
		e.logger.Error("pipeline definition rejected",
			logging.String(logging.FieldPipeline, def.ID),
			logging.Error(err))
		e.observer.RunFinished(outcome)
		return outcome
	}
	outcome.Order = order

	byID := make(map[string]int, len(def.Steps))
	for i, step := range def.Steps {
		byID[step.ID] = i
	}

	e.logger.Info("run started",
		logging.String(logging.FieldPipeline, def.ID),
		logging.Int("steps", len(order)))
	e.observer.RunStarted(def, order)

	aborted := false
	for pos, id := range order {
		step := def.Steps[byID[id]]

		if aborted || ctx.Err() != nil {
			result := Cancelled()
			outcome.Results[step.ID] = result
			e.observer.StepFinished(step, result, false)
			continue
		}

		stepCtx := logging.WithStep(ctx, step.ID)
		stepLogger := logging.WithContext(stepCtx, e.logger)

		stepLogger.Info("step started", logging.Int("position", pos+1), logging.Int("total", len(order)))
		e.observer.StepStarted(step)

		result := e.invoke(stepCtx, step, rc)

		switch result.Status {
		case StatusSucceeded:
			rc.merge(result.ContextUpdates)
			if result.Warning != "" {
				outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s: %s", step.ID, result.Warning))
				stepLogger.Warn("step succeeded with warning", logging.String(logging.FieldWarning, result.Warning))
			} else {
				stepLogger.Info("step succeeded")
			}
			outcome.Results[step.ID] = result
			e.observer.StepFinished(step, result, false)

		case StatusSkipped:
			rc.merge(result.ContextUpdates)
			outcome.Results[step.ID] = result
			stepLogger.Info("step skipped")
			e.observer.StepFinished(step, result, false)

		case StatusCancelled:
			outcome.Results[step.ID] = result
			stepLogger.Info("step cancelled")
			e.observer.StepFinished(step, result, false)
			outcome.Status = StatusCancelled
			aborted = true

		case StatusFailed:
			perr := recovery.ToPipelineError(result.ErrorMessage, map[string]any{"step": step.ID})
			if step.Critical {
				outcome.Results[step.ID] = result
				outcome.Status = StatusFailed
				outcome.Err = perr
				outcome.ErrorMessage = result.ErrorMessage
				stepLogger.Error("critical step failed",
					logging.String(logging.FieldCategory, string(perr.Category)),
					logging.String(logging.FieldRecovery, string(perr.Recovery)),
					logging.String("error_message", result.ErrorMessage))
				e.observer.StepFinished(step, result, false)
				aborted = true
			} else {
				rc.merge(result.ContextUpdates)
				warning := result.ErrorMessage
				if warning == "" {
					warning = "step failed"
				}
				outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s: %s", step.ID, warning))
				outcome.Results[step.ID] = result
				stepLogger.Warn("non-critical step failed",
					logging.String(logging.FieldCategory, string(perr.Category)),
					logging.String(logging.FieldWarning, warning))
				e.observer.StepFinished(step, result, true)
			}
		}
	}

	if ctx.Err() != nil && outcome.Status == "" {
		outcome.Status = StatusCancelled
	}
	if outcome.Status == "" {
		outcome.Status = StatusSucceeded
	}

	e.logger.Info("run finished",
		logging.String(logging.FieldPipeline, def.ID),
		logging.String(logging.FieldStatus, string(outcome.Status)),
		logging.Int("warnings", len(outcome.Warnings)))
	e.observer.RunFinished(outcome)
	return outcome
}

// invoke runs one step body, normalizing panics and malformed results into
// honest failures.
func (e *Executor) invoke(ctx context.Context, step Step, rc *Context) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = FailedMessage(fmt.Sprintf("step %s panicked: %v", step.ID, recovered))
		}
	}()

	result = step.Body.Execute(ctx, rc)
	switch result.Status {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
	default:
		result = FailedMessage(fmt.Sprintf("step %s returned unknown status %q", step.ID, result.Status))
	}
	if result.Status == StatusFailed && strings.TrimSpace(result.ErrorMessage) == "" {
		result.ErrorMessage = fmt.Sprintf("step %s failed without a message", step.ID)
	}
	return result
}
