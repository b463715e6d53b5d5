package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"slate/internal/fileutil"
	"slate/internal/ledger"
	"slate/internal/logging"
	"slate/internal/pipeline"
)

// FileName is the manifest artifact written into the run directory.
const FileName = "artifact-metadata.json"

// Version identifies the manifest schema for consumers.
const Version = 1

// Scene describes one generated scene. Field names match what the
// quality-check tooling reads.
type Scene struct {
	SceneID   string `json:"SceneId"`
	Prompt    string `json:"Prompt"`
	VideoPath string `json:"VideoPath,omitempty"`
}

// Manifest is the full artifact-metadata.json payload.
type Manifest struct {
	Version    int       `json:"Version"`
	RunID      string    `json:"RunId"`
	PipelineID string    `json:"PipelineID,omitempty"`
	SampleID   string    `json:"SampleID,omitempty"`
	ScriptPath string    `json:"ScriptPath,omitempty"`
	Scenes     []Scene   `json:"Scenes"`
	VideoPath  string    `json:"VideoPath"`
	QAVerdict  string    `json:"QAVerdict,omitempty"`
	QAScore    *float64  `json:"QAScore,omitempty"`
	CreatedAt  time.Time `json:"CreatedAt"`
}

// Run identifies the run being recorded.
type Run struct {
	RunID      string
	PipelineID string
	SampleID   string
	ScriptPath string
}

// RunLedger is the slice of the ledger store the recorder writes to.
type RunLedger interface {
	RecordArtifacts(ctx context.Context, runID string, update ledger.ArtifactUpdate) error
}

// Recorder implements the record pipeline step.
type Recorder struct {
	run    Run
	runDir string
	store  RunLedger
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder constructs the record step body. The ledger store may be
// nil when run history is disabled.
func NewRecorder(run Run, runDir string, store RunLedger, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{
		run:    run,
		runDir: runDir,
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "manifest")),
		now:    time.Now,
	}
}

// Execute assembles the manifest from accumulated context values, writes
// it into the run directory, and records the artifact fields in the
// ledger.
func (r *Recorder) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	videoPath := rc.String(pipeline.KeyVideoPath)
	if videoPath == "" {
		return pipeline.FailedMessage("no video artifact to record")
	}

	doc := Manifest{
		Version:    Version,
		RunID:      r.run.RunID,
		PipelineID: r.run.PipelineID,
		SampleID:   r.run.SampleID,
		ScriptPath: r.run.ScriptPath,
		Scenes:     scenesFrom(rc),
		VideoPath:  videoPath,
		QAVerdict:  rc.String(pipeline.KeyQAVerdict),
		CreatedAt:  r.now().UTC(),
	}
	if rc.Has(pipeline.KeyQAScore) {
		score := rc.Float64(pipeline.KeyQAScore)
		doc.QAScore = &score
	}

	path := filepath.Join(r.runDir, FileName)
	if err := writeManifest(path, doc); err != nil {
		return pipeline.Failed(err)
	}

	var warning string
	if r.store != nil {
		update := ledger.ArtifactUpdate{VideoPath: videoPath, QAVerdict: doc.QAVerdict}
		if doc.QAScore != nil {
			update.QAScore = *doc.QAScore
		}
		if err := r.store.RecordArtifacts(ctx, r.run.RunID, update); err != nil {
			warning = fmt.Sprintf("ledger update failed: %v", err)
			r.logger.Warn("ledger update failed", logging.Error(err))
		}
	}

	r.logger.Info("manifest recorded",
		logging.String(logging.FieldPath, path),
		logging.Int("scenes", len(doc.Scenes)))
	updates := map[string]any{pipeline.KeyManifestPath: path}
	if warning != "" {
		return pipeline.Warn(updates, warning)
	}
	return pipeline.Succeeded(updates)
}

// scenesFrom rebuilds the scene list from narrative context values,
// falling back to a single scene for production runs.
func scenesFrom(rc *pipeline.Context) []Scene {
	prompts := rc.StringSlice(pipeline.KeyScenePrompts)
	if len(prompts) == 0 {
		return []Scene{{
			SceneID: "scene-001",
			Prompt:  rc.String(pipeline.KeyPrompt),
		}}
	}
	paths := rc.StringSlice(pipeline.KeyScenePaths)
	scenes := make([]Scene, len(prompts))
	for i, prompt := range prompts {
		scenes[i] = Scene{
			SceneID: fmt.Sprintf("scene-%03d", i+1),
			Prompt:  prompt,
		}
		if i < len(paths) {
			scenes[i].VideoPath = paths[i]
		}
	}
	return scenes
}

func writeManifest(path string, doc Manifest) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
