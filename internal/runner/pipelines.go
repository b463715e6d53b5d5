package runner

import (
	"log/slog"

	"slate/internal/bench"
	"slate/internal/config"
	"slate/internal/enhance"
	"slate/internal/flags"
	"slate/internal/generate"
	"slate/internal/ledger"
	"slate/internal/manifest"
	"slate/internal/pipeline"
	"slate/internal/preflight"
	"slate/internal/quality"
	"slate/internal/script"
	"slate/internal/workflow"
)

// Step ids shared by the shipped definitions, the CLI, and run summaries.
const (
	StepPreflight       = "preflight"
	StepWorkflowPrepare = "workflow-prepare"
	StepGenerate        = "generate"
	StepEnhance         = "enhance"
	StepQuality         = "quality"
	StepBench           = "bench"
	StepRecord          = "record"
	StepScript          = "script"
	StepStitch          = "stitch"
)

// stepDeps bundles the shared collaborators step constructors need.
// store may be nil when the ledger is unavailable; the record step then
// writes the manifest without a history row.
type stepDeps struct {
	cfg    *config.Config
	flags  *flags.Store
	store  *ledger.Store
	logger *slog.Logger
	runDir string
	run    manifest.Run
}

// runLedger adapts the optional store to the recorder's interface
// without handing it a typed nil.
func (d stepDeps) runLedger() manifest.RunLedger {
	if d.store == nil {
		return nil
	}
	return d.store
}

// productionDefinition wires the sample-to-clip pipeline. Preparation
// and generation are critical; once the clip exists every remaining
// step is soft.
func productionDefinition(plan runPlan, deps stepDeps) pipeline.Definition {
	gen := deps.cfg.Generation
	params := workflow.Params{
		Prompt:         plan.prompt,
		NegativePrompt: gen.NegativePrompt,
		Seed:           plan.seed,
		Width:          gen.Width,
		Height:         gen.Height,
		FrameCount:     gen.FrameCount,
		OutputPrefix:   plan.outputPrefix,
	}
	return pipeline.Definition{
		ID:          plan.pipelineID,
		Description: "render one clip from a sample prompt",
		Steps: []pipeline.Step{
			{
				ID:          StepPreflight,
				Description: "environment and backend checks",
				Critical:    true,
				Body:        preflight.NewStep(deps.cfg, deps.logger),
			},
			{
				ID:          StepWorkflowPrepare,
				Description: "load the workflow profile and inject run parameters",
				DependsOn:   []string{StepPreflight},
				Critical:    true,
				Body:        workflow.NewPreparer(deps.cfg.Paths.WorkflowDir, plan.pipelineID, params, deps.flags, deps.logger),
			},
			{
				ID:          StepGenerate,
				Description: "render the clip through the configured backend",
				DependsOn:   []string{StepWorkflowPrepare},
				Critical:    true,
				Body:        generate.NewGenerator(deps.cfg, deps.flags, deps.logger),
			},
			{
				ID:          StepEnhance,
				Description: "ffmpeg post-processing",
				DependsOn:   []string{StepGenerate},
				Body:        enhance.NewEnhancer(deps.cfg, deps.logger),
			},
			{
				ID:          StepQuality,
				Description: "probe the clip and score prompt alignment",
				DependsOn:   []string{StepGenerate, StepEnhance},
				Body:        quality.NewChecker(deps.cfg, deps.logger),
			},
			{
				ID:          StepBench,
				Description: "collect generation benchmark stats",
				DependsOn:   []string{StepGenerate},
				Body:        bench.NewCollector(deps.cfg, deps.runDir, deps.logger),
			},
			{
				ID:          StepRecord,
				Description: "write the artifact manifest and ledger row",
				DependsOn:   []string{StepQuality, StepBench},
				Body:        manifest.NewRecorder(deps.run, deps.runDir, deps.runLedger(), deps.logger),
			},
		},
	}
}

// narrativeDefinition wires the script pipeline. Everything up to the
// stitched video is critical; QA and record stay soft.
func narrativeDefinition(plan runPlan, deps stepDeps) pipeline.Definition {
	return pipeline.Definition{
		ID:          plan.pipelineID,
		Description: "render a multi-scene script and stitch the result",
		Steps: []pipeline.Step{
			{
				ID:          StepPreflight,
				Description: "environment and backend checks",
				Critical:    true,
				Body:        preflight.NewStep(deps.cfg, deps.logger),
			},
			{
				ID:          StepScript,
				Description: "parse the script into scene prompts",
				DependsOn:   []string{StepPreflight},
				Critical:    true,
				Body:        script.NewLoader(deps.cfg, plan.scriptPath, deps.logger),
			},
			{
				ID:          StepGenerate,
				Description: "render one clip per scene",
				DependsOn:   []string{StepScript},
				Critical:    true,
				Body:        generate.NewGenerator(deps.cfg, deps.flags, deps.logger),
			},
			{
				ID:          StepStitch,
				Description: "concatenate scene clips into one video",
				DependsOn:   []string{StepGenerate},
				Critical:    true,
				Body:        script.NewStitcher(deps.cfg, deps.runDir, deps.logger),
			},
			{
				ID:          StepQuality,
				Description: "probe the video and score prompt alignment",
				DependsOn:   []string{StepStitch},
				Body:        quality.NewChecker(deps.cfg, deps.logger),
			},
			{
				ID:          StepRecord,
				Description: "write the artifact manifest and ledger row",
				DependsOn:   []string{StepQuality},
				Body:        manifest.NewRecorder(deps.run, deps.runDir, deps.runLedger(), deps.logger),
			},
		},
	}
}
