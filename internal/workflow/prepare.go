package workflow

import (
	"context"
	"log/slog"
	"path/filepath"

	"slate/internal/flags"
	"slate/internal/guard"
	"slate/internal/logging"
	"slate/internal/pipeline"
)

// Preparer is the workflow-prepare step body. It loads the profile for
// the requested pipeline, routes validation findings through the
// validation guard, and injects the run parameters into a fresh copy
// of the graph for the generation step.
type Preparer struct {
	dir       string
	profileID string
	params    Params
	store     *flags.Store
	logger    *slog.Logger
}

// NewPreparer constructs the workflow-prepare step body.
func NewPreparer(dir, profileID string, params Params, store *flags.Store, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Preparer{
		dir:       dir,
		profileID: profileID,
		params:    params,
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, "workflow")),
	}
}

func (p *Preparer) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, p.logger)

	profile, err := LoadProfile(p.dir, p.profileID)
	if err != nil {
		return pipeline.Failed(err)
	}

	issues := profile.Validate()
	outcome := guard.CheckValidation(issues, p.store.State(flags.ValidationGuard))
	if !outcome.ShouldContinue {
		logger.Error("workflow validation blocked the run",
			logging.Int("issues", len(issues)))
		return pipeline.Failed(outcome.Err)
	}

	params := p.params
	if prompt := rc.String(pipeline.KeyPrompt); prompt != "" {
		params.Prompt = prompt
	}

	graph, err := profile.Inject(params)
	if err != nil {
		return pipeline.Failed(err)
	}

	logger.Info("workflow prepared",
		logging.String("profile", profile.ID),
		logging.Int("nodes", len(graph)),
		logging.String("output_prefix", params.OutputPrefix))

	updates := map[string]any{
		pipeline.KeyWorkflowPath:  filepath.Join(p.dir, p.profileID+".json"),
		pipeline.KeyWorkflowGraph: graph,
		pipeline.KeyOutputPrefix:  params.OutputPrefix,
		pipeline.KeySeed:          params.Seed,
	}
	if outcome.WasWarning {
		logger.Warn("workflow validation reported issues",
			logging.Int("issues", len(issues)),
			logging.String(logging.FieldWarning, outcome.UserMessage))
		return pipeline.Warn(updates, outcome.UserMessage)
	}
	return pipeline.Succeeded(updates)
}
