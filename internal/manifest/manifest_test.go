package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/ledger"
	"slate/internal/pipeline"
)

type stubLedger struct {
	err     error
	runID   string
	updates []ledger.ArtifactUpdate
}

func (s *stubLedger) RecordArtifacts(_ context.Context, runID string, update ledger.ArtifactUpdate) error {
	s.runID = runID
	s.updates = append(s.updates, update)
	return s.err
}

func newTestRecorder(t *testing.T, store RunLedger) (*Recorder, string) {
	t.Helper()
	runDir := t.TempDir()
	run := Run{RunID: "run-abc", PipelineID: "production", SampleID: "fox-042"}
	return NewRecorder(run, runDir, store, nil), runDir
}

func decodeManifest(t *testing.T, runDir string) Manifest {
	t.Helper()
	payload, err := os.ReadFile(filepath.Join(runDir, FileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc Manifest
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	return doc
}

func TestRecorderWritesProductionManifest(t *testing.T) {
	store := &stubLedger{}
	recorder, runDir := newTestRecorder(t, store)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyVideoPath: "/runs/run-abc/final.mp4",
		pipeline.KeyPrompt:    "a fox bounding through fresh snow",
		pipeline.KeyQAVerdict: "pass",
		pipeline.KeyQAScore:   0.82,
	})
	result := recorder.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("Execute() status = %v, error = %q", result.Status, result.ErrorMessage)
	}
	if path := result.ContextUpdates[pipeline.KeyManifestPath]; path != filepath.Join(runDir, FileName) {
		t.Fatalf("manifest path = %v", path)
	}

	doc := decodeManifest(t, runDir)
	if doc.Version != Version || doc.RunID != "run-abc" || doc.SampleID != "fox-042" {
		t.Fatalf("manifest = %+v", doc)
	}
	if len(doc.Scenes) != 1 || doc.Scenes[0].SceneID != "scene-001" {
		t.Fatalf("scenes = %+v", doc.Scenes)
	}
	if doc.Scenes[0].Prompt != "a fox bounding through fresh snow" {
		t.Fatalf("scene prompt = %q", doc.Scenes[0].Prompt)
	}
	if doc.QAScore == nil || *doc.QAScore != 0.82 {
		t.Fatalf("qa score = %v", doc.QAScore)
	}

	if store.runID != "run-abc" || len(store.updates) != 1 {
		t.Fatalf("ledger writes = %+v", store.updates)
	}
	if store.updates[0].VideoPath != "/runs/run-abc/final.mp4" || store.updates[0].QAScore != 0.82 {
		t.Fatalf("ledger update = %+v", store.updates[0])
	}
}

func TestRecorderContractFieldNames(t *testing.T) {
	recorder, runDir := newTestRecorder(t, nil)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyVideoPath:    "/runs/run-abc/final.mp4",
		pipeline.KeyScenePrompts: []string{"opening shot"},
	})
	if result := recorder.Execute(context.Background(), rc); result.Status != pipeline.StatusSucceeded {
		t.Fatalf("Execute() status = %v", result.Status)
	}

	payload, err := os.ReadFile(filepath.Join(runDir, FileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Downstream check scripts read these exact keys.
	for _, key := range []string{`"Scenes"`, `"SceneId"`, `"Prompt"`, `"VideoPath"`, `"CreatedAt"`} {
		if !strings.Contains(string(payload), key) {
			t.Errorf("manifest missing contract key %s: %s", key, payload)
		}
	}
}

func TestRecorderZipsScenesWithPaths(t *testing.T) {
	recorder, runDir := newTestRecorder(t, nil)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyVideoPath:    "/runs/run-abc/final.mp4",
		pipeline.KeyScenePrompts: []string{"dawn", "noon", "dusk"},
		pipeline.KeyScenePaths:   []string{"/clips/s1.mp4", "/clips/s2.mp4", "/clips/s3.mp4"},
	})
	if result := recorder.Execute(context.Background(), rc); result.Status != pipeline.StatusSucceeded {
		t.Fatalf("Execute() status = %v", result.Status)
	}

	doc := decodeManifest(t, runDir)
	if len(doc.Scenes) != 3 {
		t.Fatalf("scenes = %+v", doc.Scenes)
	}
	if doc.Scenes[2].SceneID != "scene-003" || doc.Scenes[2].VideoPath != "/clips/s3.mp4" {
		t.Fatalf("scene 3 = %+v", doc.Scenes[2])
	}
	if doc.QAScore != nil {
		t.Fatalf("unscored run should omit QAScore, got %v", *doc.QAScore)
	}
}

func TestRecorderFailsWithoutVideo(t *testing.T) {
	recorder, _ := newTestRecorder(t, nil)

	result := recorder.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("Execute() status = %v", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "no video artifact") {
		t.Fatalf("error = %q", result.ErrorMessage)
	}
}

func TestRecorderLedgerFailureDowngrades(t *testing.T) {
	store := &stubLedger{err: errors.New("database is locked")}
	recorder, runDir := newTestRecorder(t, store)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyVideoPath: "/runs/run-abc/final.mp4",
	})
	result := recorder.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("Execute() status = %v", result.Status)
	}
	if !strings.Contains(result.Warning, "ledger update failed") {
		t.Fatalf("warning = %q", result.Warning)
	}
	if _, err := os.Stat(filepath.Join(runDir, FileName)); err != nil {
		t.Fatalf("manifest should still be written: %v", err)
	}
}
