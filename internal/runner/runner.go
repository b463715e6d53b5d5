package runner

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"slate/internal/config"
	"slate/internal/flags"
	"slate/internal/ledger"
	"slate/internal/logging"
	"slate/internal/manifest"
	"slate/internal/notifications"
	"slate/internal/pipeline"
	"slate/internal/recovery"
	"slate/internal/report"
	"slate/internal/runlock"
	"slate/internal/runstate"
	"slate/internal/textutil"
)

// Runner executes run requests end to end. One Runner can serve many
// sequential requests; the run lock serializes actual execution.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	flags  *flags.Store
	notify notifications.Service
	now    func() time.Time
}

// New builds a Runner from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, recovery.NewError(recovery.CategoryValidationFailed, "runner requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := flags.NewStore(cfg.Flags)
	if err != nil {
		return nil, recovery.Wrap(recovery.CategoryValidationFailed, "runner", "load feature flags", err)
	}
	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "runner"),
		flags:  store,
		notify: notifications.NewService(cfg),
		now:    time.Now,
	}, nil
}

// runPlan is a request resolved against the sample catalog and config:
// everything Execute needs decided before any file is touched.
type runPlan struct {
	runType      Type
	runID        string
	pipelineID   string
	sampleID     string
	scriptPath   string
	prompt       string
	seed         int64
	hasSeed      bool
	temporalMode string
	outputPrefix string
}

func newRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

// plan resolves the request into a concrete run plan. Validation has
// already passed; plan only resolves catalog lookups and paths.
func (r *Runner) plan(req Request) (runPlan, error) {
	plan := runPlan{
		runType:      req.Type,
		runID:        newRunID(r.now()),
		temporalMode: strings.ToLower(strings.TrimSpace(req.TemporalMode)),
	}
	if req.Seed != nil {
		plan.seed = *req.Seed
		plan.hasSeed = true
	}

	if req.Type == TypeNarrative {
		plan.pipelineID = "narrative"
		path := strings.TrimSpace(req.ScriptPath)
		if path == "" {
			return runPlan{}, recovery.NewError(recovery.CategoryValidationFailed, "ScriptPath is required for narrative runs")
		}
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return runPlan{}, recovery.Wrap(recovery.CategoryValidationFailed, "runner", "resolve script path", err)
		}
		plan.scriptPath = expanded
		plan.outputPrefix = plan.runID + "/scene"
		return plan, nil
	}

	plan.pipelineID = strings.TrimSpace(req.PipelineID)
	if plan.pipelineID == "" {
		return runPlan{}, recovery.NewError(recovery.CategoryValidationFailed, "PipelineID is required for production runs")
	}
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		plan.prompt = prompt
		plan.sampleID = strings.TrimSpace(req.SampleID)
	} else {
		sample, ok := SampleByID(req.SampleID)
		if !ok {
			return runPlan{}, recovery.Errorf(recovery.CategoryValidationFailed, "unknown sample %q", req.SampleID)
		}
		plan.prompt = sample.Prompt
		plan.sampleID = sample.ID
	}
	if !plan.hasSeed {
		// A fresh clip per run; rerun with --seed to reproduce.
		plan.seed = r.now().UnixNano()
		plan.hasSeed = true
	}
	token := plan.sampleID
	if token == "" {
		token = plan.pipelineID
	}
	plan.outputPrefix = plan.runID + "/" + textutil.SanitizeToken(token)
	return plan, nil
}

// initialContext seeds the shared run context. Production seed and
// prefix arrive via the workflow preparer instead, so the submitted
// graph stays the single source of truth.
func (p runPlan) initialContext() map[string]any {
	values := map[string]any{}
	if p.prompt != "" {
		values[pipeline.KeyPrompt] = p.prompt
	}
	if p.sampleID != "" {
		values[pipeline.KeySampleID] = p.sampleID
	}
	if p.temporalMode != "" {
		values[pipeline.KeyTemporalMode] = p.temporalMode
	}
	if p.runType == TypeNarrative {
		values[pipeline.KeyOutputPrefix] = p.outputPrefix
		if p.hasSeed {
			values[pipeline.KeySeed] = p.seed
		}
	}
	return values
}

// Execute runs one request to completion and reports the outcome. The
// error surface is the Response; Execute never returns a Go error so
// callers always get a run summary they can print.
func (r *Runner) Execute(ctx context.Context, req Request) Response {
	if err := req.Validate(); err != nil {
		return Response{Error: err.Error()}
	}
	plan, err := r.plan(req)
	if err != nil {
		return Response{Error: err.Error()}
	}
	if req.DryRun {
		return r.dryRun(plan)
	}

	// GPU and output-prefix exclusivity: one run per runs dir.
	lock := runlock.New(r.cfg.Paths.RunsDir)
	if err := lock.Acquire(); err != nil {
		return Response{Error: err.Error()}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("run lock release failed", logging.Error(err))
		}
	}()

	if err := r.cfg.EnsureDirectories(); err != nil {
		return Response{Error: "prepare directories: " + err.Error()}
	}

	runDir := report.RunDir(r.cfg.Paths.RunsDir, plan.runID)
	logger := r.logger
	runLogger, transcript, err := logging.NewRunLogger(r.logger, filepath.Join(runDir, "run.log"))
	if err != nil {
		r.logger.Warn("run transcript unavailable", logging.Error(err))
	} else {
		logger = runLogger
		defer transcript.Close()
	}
	ctx = logging.WithRunID(ctx, plan.runID)

	// History never blocks a run.
	store, err := ledger.Open(r.cfg.Paths.LedgerPath)
	if err != nil {
		logger.Warn("run ledger unavailable", logging.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	rc := pipeline.NewContextWith(plan.initialContext())
	reporter, err := report.New(logger, r.cfg.Paths.RunsDir, report.Meta{
		RunID:      plan.runID,
		PipelineID: plan.pipelineID,
		SampleID:   plan.sampleID,
		ScriptPath: plan.scriptPath,
	}, rc)
	if err != nil {
		return Response{Error: "prepare run reporting: " + err.Error()}
	}

	def := r.definition(plan, stepDeps{
		cfg:    r.cfg,
		flags:  r.flags,
		store:  store,
		logger: logger,
		runDir: reporter.Dir(),
		run: manifest.Run{
			RunID:      plan.runID,
			PipelineID: plan.pipelineID,
			SampleID:   plan.sampleID,
			ScriptPath: plan.scriptPath,
		},
	})

	logger.Info("run starting",
		logging.String(logging.FieldRunID, plan.runID),
		logging.String(logging.FieldPipeline, plan.pipelineID),
		logging.String(logging.FieldPath, reporter.Dir()))
	if req.Verbose {
		if order, err := pipeline.ExecutionOrder(def); err == nil {
			logger.Info("run plan",
				logging.String(logging.FieldRunID, plan.runID),
				logging.String(logging.FieldPipeline, plan.pipelineID),
				logging.String("steps", strings.Join(order, ", ")))
		}
	}
	if store != nil {
		if _, err := store.RecordStart(ctx, plan.runID, plan.pipelineID, plan.sampleID, plan.scriptPath); err != nil {
			logger.Warn("ledger start failed", logging.Error(err))
		}
	}

	outcome := pipeline.NewExecutor(logger, pipeline.WithObserver(reporter)).Run(ctx, def, rc)
	state := reporter.State()

	// Finish bookkeeping runs on a detached context so a cancelled run
	// still lands its ledger row and notification.
	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if store != nil {
		update := ledger.FinishUpdate{
			Status:       state.Status,
			ErrorMessage: state.ErrorMessage,
			VideoPath:    rc.String(pipeline.KeyVideoPath),
			QAVerdict:    rc.String(pipeline.KeyQAVerdict),
			QAScore:      rc.Float64(pipeline.KeyQAScore),
			DurationMS:   state.DurationMS,
			WarningCount: len(state.Warnings),
			SummaryPath:  report.SummaryPath(reporter.Dir()),
		}
		if err := store.RecordFinish(finishCtx, plan.runID, update); err != nil {
			logger.Warn("ledger finish failed", logging.Error(err))
		}
	}
	r.publish(finishCtx, plan, state, rc)

	switch outcome.Status {
	case pipeline.StatusSucceeded:
		return Response{Success: true, RunID: plan.runID}
	case pipeline.StatusCancelled:
		return Response{RunID: plan.runID, Error: "run cancelled"}
	default:
		message := outcome.ErrorMessage
		if message == "" {
			message = "run failed"
		}
		return Response{RunID: plan.runID, Error: message}
	}
}

func (r *Runner) definition(plan runPlan, deps stepDeps) pipeline.Definition {
	if plan.runType == TypeNarrative {
		return narrativeDefinition(plan, deps)
	}
	return productionDefinition(plan, deps)
}

// dryRun validates the definition and reports the planned order
// without touching the runs directory.
func (r *Runner) dryRun(plan runPlan) Response {
	deps := stepDeps{cfg: r.cfg, flags: r.flags, logger: logging.NewNop()}
	def := r.definition(plan, deps)
	order, err := pipeline.ExecutionOrder(def)
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Success: true, PlannedSteps: order}
}

// publish sends terminal notifications. Delivery failures are logged
// and never affect the run outcome.
func (r *Runner) publish(ctx context.Context, plan runPlan, state runstate.RunState, rc *pipeline.Context) {
	switch state.Status {
	case runstate.StatusSucceeded:
		duration := (time.Duration(state.DurationMS) * time.Millisecond).Round(time.Second)
		payload := notifications.Payload{
			"pipelineId": plan.pipelineID,
			"runId":      plan.runID,
			"duration":   duration.String(),
			"videoPath":  rc.String(pipeline.KeyVideoPath),
		}
		if err := r.notify.Publish(ctx, notifications.EventRunCompleted, payload); err != nil {
			r.logger.Warn("notification failed", logging.Error(err))
		}
		if len(state.Warnings) > 0 {
			payload := notifications.Payload{
				"count": strconv.Itoa(len(state.Warnings)),
				"first": state.Warnings[0],
			}
			if err := r.notify.Publish(ctx, notifications.EventWarnings, payload); err != nil {
				r.logger.Warn("notification failed", logging.Error(err))
			}
		}
	case runstate.StatusFailed:
		payload := notifications.Payload{
			"error": state.ErrorMessage,
			"runId": plan.runID,
		}
		if err := r.notify.Publish(ctx, notifications.EventRunFailed, payload); err != nil {
			r.logger.Warn("notification failed", logging.Error(err))
		}
	}
}
