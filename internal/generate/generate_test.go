package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slate/internal/config"
	"slate/internal/fastvideo"
	"slate/internal/flags"
	"slate/internal/pipeline"
	"slate/internal/recovery"
	"slate/internal/workflow"
)

type stubComfy struct {
	promptID  string
	err       error
	submitted any
}

func (s *stubComfy) SubmitPrompt(_ context.Context, graph any) (string, error) {
	s.submitted = graph
	if s.err != nil {
		return "", s.err
	}
	return s.promptID, nil
}

type stubFast struct {
	responses []fastvideo.GenerateResponse
	err       error
	requests  []fastvideo.GenerateRequest
}

func (s *stubFast) Generate(_ context.Context, request fastvideo.GenerateRequest) (fastvideo.GenerateResponse, error) {
	s.requests = append(s.requests, request)
	if s.err != nil {
		return fastvideo.GenerateResponse{}, s.err
	}
	index := len(s.requests) - 1
	if index >= len(s.responses) {
		index = len(s.responses) - 1
	}
	return s.responses[index], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Generation.TokenBudget = 0
	return &cfg
}

func testFlags(t *testing.T, overrides map[string]string) *flags.Store {
	t.Helper()
	store, err := flags.NewStore(overrides)
	if err != nil {
		t.Fatalf("flags store: %v", err)
	}
	return store
}

func newTestGenerator(t *testing.T, cfg *config.Config, store *flags.Store, comfyStub ComfyService, fastStub FastVideoService) *Generator {
	t.Helper()
	gen := NewGeneratorWithDependencies(cfg, store, nil, comfyStub, fastStub)
	gen.pollInterval = 2 * time.Millisecond
	gen.timeout = 250 * time.Millisecond
	return gen
}

func writeMarker(t *testing.T, outputDir, prefix string, frames int) {
	t.Helper()
	path := MarkerPath(outputDir, prefix)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	payload := fmt.Sprintf(`{"Timestamp":"2026-08-25T10:00:00Z","FrameCount":%d}`, frames)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
}

func writeArtifact(t *testing.T, outputDir, name string) string {
	t.Helper()
	path := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestComfyClipWaitsForMarker(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendComfy
	comfyStub := &stubComfy{promptID: "prompt-abc"}
	gen := newTestGenerator(t, cfg, testFlags(t, nil), comfyStub, &stubFast{})

	prefix := "slate/run-1/clip"
	writeMarker(t, cfg.Paths.OutputDir, prefix, 121)
	want := writeArtifact(t, cfg.Paths.OutputDir, prefix+"_00001.mp4")

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyPrompt:        "a foggy harbor at dawn",
		pipeline.KeyOutputPrefix:  prefix,
		pipeline.KeyWorkflowGraph: workflow.Graph{"1": {ClassType: "CLIPTextEncode"}},
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	if got := result.ContextUpdates[pipeline.KeyVideoPath]; got != want {
		t.Fatalf("unexpected video path: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeyPromptID]; got != "prompt-abc" {
		t.Fatalf("unexpected prompt id: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeyFrameCount]; got != 121 {
		t.Fatalf("unexpected frame count: %v", got)
	}
	if _, ok := comfyStub.submitted.(workflow.Graph); !ok {
		t.Fatalf("expected graph submitted, got %T", comfyStub.submitted)
	}
}

func TestComfyMarkerTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendComfy
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{promptID: "p"}, &stubFast{})
	gen.timeout = 15 * time.Millisecond

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyPrompt:        "a foggy harbor at dawn",
		pipeline.KeyOutputPrefix:  "slate/run-1/clip",
		pipeline.KeyWorkflowGraph: workflow.Graph{"1": {ClassType: "CLIPTextEncode"}},
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, string(recovery.CategoryAPITimeout)) {
		t.Fatalf("expected api_timeout, got %s", result.ErrorMessage)
	}
}

func TestComfyRequiresPreparedGraph(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendComfy
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{promptID: "p"}, &stubFast{})

	rc := pipeline.NewContextWith(map[string]any{pipeline.KeyPrompt: "a harbor"})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "workflow-prepare") {
		t.Fatalf("unexpected message: %s", result.ErrorMessage)
	}
}

func TestFastVideoClipMergesResponse(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendFastVideo
	seed := int64(77)
	fastStub := &stubFast{responses: []fastvideo.GenerateResponse{{
		Status:     "complete",
		VideoPath:  "/out/run-1/clip.mp4",
		Frames:     49,
		DurationMS: 31500,
		Seed:       &seed,
	}}}
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{}, fastStub)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyPrompt:       "a slow tide",
		pipeline.KeyOutputPrefix: "slate/run-1/clip",
		pipeline.KeySeed:         int64(11),
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	if got := result.ContextUpdates[pipeline.KeyVideoPath]; got != "/out/run-1/clip.mp4" {
		t.Fatalf("unexpected video path: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeyGenerationSeconds]; got != 31.5 {
		t.Fatalf("unexpected duration: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeySeed]; got != int64(77) {
		t.Fatalf("expected echoed seed, got %v", got)
	}
	if len(fastStub.requests) != 1 {
		t.Fatalf("expected one generate call, got %d", len(fastStub.requests))
	}
	request := fastStub.requests[0]
	if request.Seed == nil || *request.Seed != 11 {
		t.Fatalf("expected requested seed 11, got %v", request.Seed)
	}
	if request.OutputDir != filepath.Join(cfg.Paths.OutputDir, "slate/run-1") {
		t.Fatalf("unexpected output dir: %s", request.OutputDir)
	}
}

func TestSceneLoopCollectsClips(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendFastVideo
	fastStub := &stubFast{responses: []fastvideo.GenerateResponse{
		{Status: "complete", VideoPath: "/out/scene-1.mp4", Frames: 33},
		{Status: "complete", VideoPath: "/out/scene-2.mp4", Frames: 33},
		{Status: "complete", VideoPath: "/out/scene-3.mp4", Frames: 33},
	}}
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{}, fastStub)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyScenePrompts: []string{"harbor at dawn", "gulls over the pier", "nets drying in sun"},
		pipeline.KeySeed:         int64(100),
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	paths, ok := result.ContextUpdates[pipeline.KeyScenePaths].([]string)
	if !ok || len(paths) != 3 {
		t.Fatalf("unexpected scene paths: %v", result.ContextUpdates[pipeline.KeyScenePaths])
	}
	if got := result.ContextUpdates[pipeline.KeyFrameCount]; got != 99 {
		t.Fatalf("unexpected total frames: %v", got)
	}
	if len(fastStub.requests) != 3 {
		t.Fatalf("expected three generate calls, got %d", len(fastStub.requests))
	}
	for index, request := range fastStub.requests {
		if request.Seed == nil || *request.Seed != int64(100+index) {
			t.Fatalf("scene %d: unexpected seed %v", index+1, request.Seed)
		}
	}
}

func TestSceneLoopRequiresFastVideo(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendComfy
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{}, &stubFast{})

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyScenePrompts: []string{"one", "two"},
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "fastvideo backend") {
		t.Fatalf("unexpected message: %s", result.ErrorMessage)
	}
}

func TestTokenGuardBlocksGeneration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendFastVideo
	cfg.Generation.TokenBudget = 5
	store := testFlags(t, map[string]string{flags.TokenGuard: "block"})
	fastStub := &stubFast{responses: []fastvideo.GenerateResponse{{Status: "complete", VideoPath: "/out/x.mp4"}}}
	gen := newTestGenerator(t, cfg, store, &stubComfy{}, fastStub)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyPrompt: strings.Repeat("a very long prompt ", 10),
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, string(recovery.CategoryTokenOverflow)) {
		t.Fatalf("expected token_overflow, got %s", result.ErrorMessage)
	}
	if len(fastStub.requests) != 0 {
		t.Fatal("backend must not be called when the guard blocks")
	}
}

func TestTokenGuardWarnStillGenerates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Backend = BackendFastVideo
	cfg.Generation.TokenBudget = 5
	fastStub := &stubFast{responses: []fastvideo.GenerateResponse{{Status: "complete", VideoPath: "/out/x.mp4", Frames: 10}}}
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{}, fastStub)

	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyPrompt: strings.Repeat("a very long prompt ", 10),
	})
	result := gen.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("warn policy should still generate: %s", result.ErrorMessage)
	}
	if result.Warning == "" {
		t.Fatal("expected a token budget warning")
	}
	if len(fastStub.requests) != 1 {
		t.Fatalf("expected one generate call, got %d", len(fastStub.requests))
	}
}

func TestEmptyPromptFails(t *testing.T) {
	cfg := testConfig(t)
	gen := newTestGenerator(t, cfg, testFlags(t, nil), &stubComfy{}, &stubFast{})
	result := gen.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "no prompt") {
		t.Fatalf("unexpected message: %s", result.ErrorMessage)
	}
}
