package runner_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"slate/internal/config"
	"slate/internal/manifest"
	"slate/internal/report"
	"slate/internal/runlock"
	"slate/internal/runner"
	"slate/internal/runstate"
	"slate/internal/script"
	"slate/internal/testsupport"
)

// fakeFastVideo serves the sidecar API and writes one clip file per
// generate call so downstream steps see a real artifact path.
func fakeFastVideo(t *testing.T) *httptest.Server {
	t.Helper()

	var clips atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"fastvideo","modelId":"fv-test","modelLoaded":true}`))
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Prompt    string `json:"prompt"`
			OutputDir string `json:"outputDir"`
			Seed      *int64 `json:"seed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if request.OutputDir == "" {
			http.Error(w, "no output dir", http.StatusBadRequest)
			return
		}
		if err := os.MkdirAll(request.OutputDir, 0o755); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		clip := filepath.Join(request.OutputDir, fmt.Sprintf("clip-%03d.mp4", clips.Add(1)))
		if err := os.WriteFile(clip, []byte("mp4"), 0o644); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		response := map[string]any{
			"status":          "complete",
			"outputVideoPath": clip,
			"frames":          81,
			"durationMs":      1200,
		}
		if request.Seed != nil {
			response["seed"] = *request.Seed
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestRunner(t *testing.T, cfg *config.Config) *runner.Runner {
	t.Helper()
	r, err := runner.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func readSummary(t *testing.T, cfg *config.Config, runID string) report.Summary {
	t.Helper()
	payload, err := os.ReadFile(report.SummaryPath(report.RunDir(cfg.Paths.RunsDir, runID)))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return summary
}

func TestExecuteProductionRun(t *testing.T) {
	server := fakeFastVideo(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackend("fastvideo"),
		testsupport.WithStubbedBinaries())
	cfg.FastVideo.BaseURL = server.URL
	testsupport.WriteWorkflowProfile(t, cfg, "text-to-video")

	seed := int64(99)
	resp := newTestRunner(t, cfg).Execute(context.Background(), runner.Request{
		Type:       runner.TypeProduction,
		PipelineID: "text-to-video",
		SampleID:   "harbor-dawn",
		Seed:       &seed,
	})
	if !resp.Success {
		t.Fatalf("Execute failed: %s", resp.Error)
	}
	if resp.RunID == "" {
		t.Fatal("Execute returned no run id")
	}

	summary := readSummary(t, cfg, resp.RunID)
	if summary.Status != runstate.StatusSucceeded {
		t.Fatalf("summary status = %q, error = %q", summary.Status, summary.ErrorMessage)
	}
	if summary.SampleID != "harbor-dawn" {
		t.Fatalf("summary sample = %q, want harbor-dawn", summary.SampleID)
	}
	if len(summary.Steps) != 7 {
		t.Fatalf("summary has %d steps, want 7", len(summary.Steps))
	}
	if summary.VideoPath == "" {
		t.Fatal("summary missing video path")
	}

	store := testsupport.MustOpenLedger(t, cfg)
	record, err := store.Get(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("ledger Get: %v", err)
	}
	if record.Status != runstate.StatusSucceeded {
		t.Fatalf("ledger status = %q, want succeeded", record.Status)
	}
	if record.SummaryPath == "" {
		t.Fatal("ledger row missing summary path")
	}

	if _, err := os.Stat(report.LatestPath(cfg.Paths.RunsDir)); err != nil {
		t.Fatalf("latest pointer: %v", err)
	}

	// The run released its lock on the way out.
	lock := runlock.New(cfg.Paths.RunsDir)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("lock still held after run: %v", err)
	}
	_ = lock.Release()
}

func TestExecuteNarrativeRun(t *testing.T) {
	server := fakeFastVideo(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBackend("fastvideo"),
		testsupport.WithStubbedBinaries())
	cfg.FastVideo.BaseURL = server.URL

	scriptPath := filepath.Join(testsupport.BaseDir(cfg), "script.txt")
	text := "# Foggy Harbor\n" +
		"fishing boats creak against a mist-wrapped pier\n" +
		"a lighthouse beam sweeps across the fog at first light\n"
	if err := os.WriteFile(scriptPath, []byte(text), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	resp := newTestRunner(t, cfg).Execute(context.Background(), runner.Request{
		Type:       runner.TypeNarrative,
		ScriptPath: scriptPath,
	})
	if !resp.Success {
		t.Fatalf("Execute failed: %s", resp.Error)
	}

	summary := readSummary(t, cfg, resp.RunID)
	if summary.Status != runstate.StatusSucceeded {
		t.Fatalf("summary status = %q, error = %q", summary.Status, summary.ErrorMessage)
	}
	if summary.PipelineID != "narrative" {
		t.Fatalf("summary pipeline = %q, want narrative", summary.PipelineID)
	}
	if len(summary.Steps) != 6 {
		t.Fatalf("summary has %d steps, want 6", len(summary.Steps))
	}

	runDir := report.RunDir(cfg.Paths.RunsDir, resp.RunID)
	payload, err := os.ReadFile(filepath.Join(runDir, manifest.FileName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var doc manifest.Manifest
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(doc.Scenes) != 2 {
		t.Fatalf("manifest has %d scenes, want 2", len(doc.Scenes))
	}
	for i, scene := range doc.Scenes {
		if scene.VideoPath == "" {
			t.Fatalf("scene %d missing video path", i+1)
		}
	}
	if filepath.Base(doc.VideoPath) != script.StitchedName {
		t.Fatalf("manifest video = %q, want stitched %s", doc.VideoPath, script.StitchedName)
	}
}

func TestExecuteRejectsConcurrentRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	held := runlock.New(cfg.Paths.RunsDir)
	if err := held.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	resp := newTestRunner(t, cfg).Execute(context.Background(), runner.Request{
		Type:       runner.TypeProduction,
		PipelineID: "text-to-video",
	})
	if resp.Success {
		t.Fatal("Execute succeeded while another run holds the lock")
	}
	if !strings.Contains(resp.Error, "already in progress") {
		t.Fatalf("Error = %q, want already-in-progress", resp.Error)
	}
}

func TestExecuteUnknownSample(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resp := newTestRunner(t, cfg).Execute(context.Background(), runner.Request{
		Type:       runner.TypeProduction,
		PipelineID: "text-to-video",
		SampleID:   "nope",
	})
	if resp.Success {
		t.Fatal("Execute succeeded with unknown sample")
	}
	if !strings.Contains(resp.Error, `unknown sample "nope"`) {
		t.Fatalf("Error = %q, want unknown sample", resp.Error)
	}
	entries, err := os.ReadDir(cfg.Paths.RunsDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("runs dir has %d entries, want none before validation passes", len(entries))
	}
}

func TestExecuteDryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	resp := newTestRunner(t, cfg).Execute(context.Background(), runner.Request{
		Type:       runner.TypeProduction,
		PipelineID: "text-to-video",
		DryRun:     true,
	})
	if !resp.Success {
		t.Fatalf("dry run failed: %s", resp.Error)
	}
	if resp.RunID != "" {
		t.Fatalf("dry run produced run id %q, want none", resp.RunID)
	}
	want := []string{
		runner.StepPreflight, runner.StepWorkflowPrepare, runner.StepGenerate,
		runner.StepEnhance, runner.StepQuality, runner.StepBench, runner.StepRecord,
	}
	if len(resp.PlannedSteps) != len(want) {
		t.Fatalf("PlannedSteps = %v, want %v", resp.PlannedSteps, want)
	}
	for i := range want {
		if resp.PlannedSteps[i] != want[i] {
			t.Fatalf("PlannedSteps = %v, want %v", resp.PlannedSteps, want)
		}
	}
	entries, err := os.ReadDir(cfg.Paths.RunsDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run wrote %d entries into runs dir", len(entries))
	}
}
