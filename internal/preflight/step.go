package preflight

import (
	"context"
	"log/slog"
	"strings"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/pipeline"
	"slate/internal/recovery"
)

// Step is the pipeline body that runs every readiness check before the
// rest of the run. A failed required check aborts the run.
type Step struct {
	cfg    *config.Config
	logger *slog.Logger
	run    func(context.Context, *config.Config) []Result
}

// NewStep constructs the preflight step body.
func NewStep(cfg *config.Config, logger *slog.Logger) *Step {
	return NewStepWithRunner(cfg, logger, RunAll)
}

// NewStepWithRunner allows injecting the check runner (used in tests).
func NewStepWithRunner(cfg *config.Config, logger *slog.Logger, run func(context.Context, *config.Config) []Result) *Step {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Step{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "preflight")),
		run:    run,
	}
}

// Execute runs the checks and records them in the run context so the
// summary carries the full readiness picture.
func (s *Step) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	results := s.run(ctx, s.cfg)
	for _, result := range results {
		if result.Passed {
			s.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		s.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.Bool("optional", result.Optional),
			logging.String("detail", result.Detail))
	}

	if failed := Failures(results); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, result := range failed {
			names = append(names, result.Name)
		}
		err := recovery.Errorf(recovery.CategoryValidationFailed,
			"preflight failed: %s", strings.Join(names, ", "))
		return pipeline.Failed(err)
	}
	return pipeline.Succeeded(map[string]any{pipeline.KeyPreflight: results})
}
