// Package report records run progress for polling consumers and writes the
// terminal artifacts: the run status file, full and lite JSON summaries, a
// human-readable report, and the latest-run pointer.
package report

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slate/internal/fileutil"
	"slate/internal/logging"
	"slate/internal/pipeline"
	"slate/internal/runstate"
)

const (
	statusFileName  = "status.json"
	summaryFileName = "summary.json"
	liteFileName    = "summary-lite.json"
	reportFileName  = "report.txt"
	latestFileName  = "latest.json"
)

// Meta identifies the run being reported.
type Meta struct {
	RunID      string
	PipelineID string
	SampleID   string
	ScriptPath string
}

// Reporter observes executor transitions and persists the status file after
// each one. All methods are safe for concurrent use, though the executor
// calls them from a single goroutine.
type Reporter struct {
	mu     sync.Mutex
	logger *slog.Logger
	meta   Meta
	rc     *pipeline.Context
	run    *runstate.RunState
	order  []string

	dir        string
	statusPath string
	latestPath string

	now func() time.Time
}

// Option customizes a reporter.
type Option func(*Reporter)

// WithClock overrides the reporter's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates the run directory under runsRoot and seeds the status file
// with a queued run. The run context is snapshotted into the summary when
// the run finishes.
func New(logger *slog.Logger, runsRoot string, meta Meta, rc *pipeline.Context, opts ...Option) (*Reporter, error) {
	if rc == nil {
		rc = pipeline.NewContext()
	}
	r := &Reporter{
		logger:     logging.NewComponentLogger(logger, "report"),
		meta:       meta,
		rc:         rc,
		dir:        RunDir(runsRoot, meta.RunID),
		latestPath: LatestPath(runsRoot),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.statusPath = StatusPath(r.dir)
	if err := fileutil.EnsureDir(r.dir); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	r.run = runstate.New(meta.RunID, meta.PipelineID, r.now())
	r.persistLocked()
	return r, nil
}

// Dir returns the per-run artifact directory.
func (r *Reporter) Dir() string { return r.dir }

// StatusPath returns the path of the polled status file.
func (r *Reporter) StatusPath() string { return r.statusPath }

// State returns a copy of the current run state.
func (r *Reporter) State() runstate.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.run
}

// RunStarted implements pipeline.Observer.
func (r *Reporter) RunStarted(def pipeline.Definition, order []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append([]string(nil), order...)
	r.run.TotalSteps = len(order)
	r.persistLocked()
}

// StepStarted implements pipeline.Observer.
func (r *Reporter) StepStarted(step pipeline.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.StepStarted(step.ID, r.now())
	r.persistLocked()
}

// StepFinished implements pipeline.Observer. Downgraded failures are
// recorded as warnings so the run summary keeps them visible.
func (r *Reporter) StepFinished(step pipeline.Step, result pipeline.Result, downgraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := r.now()
	switch {
	case result.Status == pipeline.StatusSucceeded:
		if result.Warning != "" {
			r.run.Warn(step.ID, fmt.Sprintf("%s: %s", step.ID, result.Warning), at)
		}
		r.run.StepCompleted(step.ID, result.Warning, at)
	case result.Status == pipeline.StatusSkipped:
		r.run.StepCompleted(step.ID, skipMessage(result), at)
	case result.Status == pipeline.StatusFailed && downgraded:
		r.run.Warn(step.ID, fmt.Sprintf("%s: %s", step.ID, result.ErrorMessage), at)
		r.run.StepCompleted(step.ID, result.ErrorMessage, at)
	case result.Status == pipeline.StatusFailed:
		r.run.StepFailed(step.ID, result.ErrorMessage, at)
	}
	r.persistLocked()
}

// RunFinished implements pipeline.Observer. It stamps the terminal status
// and writes every summary artifact.
func (r *Reporter) RunFinished(outcome pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := r.now()

	status := runstate.StatusFailed
	switch outcome.Status {
	case pipeline.StatusSucceeded:
		status = runstate.StatusSucceeded
	case pipeline.StatusCancelled:
		status = runstate.StatusCancelled
	}
	if err := r.run.Finish(status, outcome.ErrorMessage, at); err != nil {
		r.logger.Error("finish run state", logging.Error(err))
		return
	}
	r.persistLocked()

	summary := BuildSummary(r.run, r.meta, outcome, r.order, r.rc.Snapshot())
	r.writeSummariesLocked(summary)
}

// Log appends an informational event to the run log.
func (r *Reporter) Log(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.Append(runstate.EventLog, "", message, r.now())
	r.persistLocked()
}

// Warning records a non-fatal condition raised outside step execution.
func (r *Reporter) Warning(step, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.Warn(step, message, r.now())
	r.persistLocked()
}

func (r *Reporter) persistLocked() {
	data, err := runstate.EncodeStatusFile(r.run, r.now())
	if err != nil {
		r.logger.Error("encode status file", logging.Error(err))
		return
	}
	if err := fileutil.WriteAtomic(r.statusPath, data, 0o644); err != nil {
		r.logger.Error("write status file", logging.Error(err), logging.String(logging.FieldPath, r.statusPath))
	}
}

func (r *Reporter) writeSummariesLocked(summary Summary) {
	write := func(path string, data []byte) {
		if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
			r.logger.Error("write run artifact", logging.Error(err), logging.String(logging.FieldPath, path))
		}
	}

	if data, err := summary.Encode(); err != nil {
		r.logger.Error("encode summary", logging.Error(err))
	} else {
		write(SummaryPath(r.dir), data)
	}

	lite := summary.Lite()
	liteData, err := lite.Encode()
	if err != nil {
		r.logger.Error("encode lite summary", logging.Error(err))
	} else {
		write(LiteSummaryPath(r.dir), liteData)
		write(r.latestPath, liteData)
	}

	write(ReportPath(r.dir), []byte(RenderReport(summary)))

	r.logger.Info("run artifacts written",
		logging.String(logging.FieldRunID, r.meta.RunID),
		logging.String(logging.FieldStatus, string(summary.Status)),
		logging.String(logging.FieldPath, r.dir))
}

func skipMessage(result pipeline.Result) string {
	if len(result.ContextUpdates) != 1 {
		return ""
	}
	for _, v := range result.ContextUpdates {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
