package quality

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/config"
	"slate/internal/llm"
	"slate/internal/media/ffprobe"
	"slate/internal/pipeline"
)

type stubScorer struct {
	configured bool
	alignment  llm.Alignment
	err        error
	prompts    []string
}

func (s *stubScorer) Configured() bool { return s.configured }

func (s *stubScorer) ScoreAlignment(_ context.Context, prompt string, _ []string) (llm.Alignment, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return llm.Alignment{}, s.err
	}
	return s.alignment, nil
}

func healthyProbe(duration string) probeFunc {
	return func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", AvgFrameRate: "16/1", NBFrames: "81"}},
			Format:  ffprobe.Format{Duration: duration},
		}, nil
	}
}

func qualityConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	return &cfg
}

func newTestChecker(cfg *config.Config, scorer Scorer, probe probeFunc) *Checker {
	checker := NewCheckerWithDependencies(cfg, nil, scorer)
	if probe != nil {
		checker.probe = probe
	}
	return checker
}

func videoContext(t *testing.T, extra map[string]any) *pipeline.Context {
	t.Helper()
	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	values := map[string]any{
		pipeline.KeyVideoPath:  videoPath,
		pipeline.KeyPrompt:     "a foggy harbor at dawn",
		pipeline.KeyFrameCount: 81,
	}
	for k, v := range extra {
		values[k] = v
	}
	return pipeline.NewContextWith(values)
}

func TestSkippedWhenDisabled(t *testing.T) {
	cfg := qualityConfig(t)
	cfg.Quality.Enabled = false
	checker := newTestChecker(cfg, &stubScorer{}, healthyProbe("5.06"))

	result := checker.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusSkipped {
		t.Fatalf("expected skip, got %s", result.Status)
	}
	if got := result.ContextUpdates[pipeline.KeyQASkipped]; got != "quality checks disabled" {
		t.Fatalf("unexpected skip reason: %v", got)
	}
}

func TestMechanicalPassWithoutScorer(t *testing.T) {
	cfg := qualityConfig(t)
	checker := newTestChecker(cfg, &stubScorer{configured: false}, healthyProbe("5.06"))

	result := checker.Execute(context.Background(), videoContext(t, nil))
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictPass {
		t.Fatalf("unexpected verdict: %v", got)
	}
	if _, ok := result.ContextUpdates[pipeline.KeyQAScore]; ok {
		t.Fatal("score must not be merged when the scorer did not run")
	}
}

func TestLexicalFallbackScoresScenes(t *testing.T) {
	cfg := qualityConfig(t)
	checker := newTestChecker(cfg, &stubScorer{configured: false}, healthyProbe("5.06"))

	rc := videoContext(t, map[string]any{
		pipeline.KeyPrompt: "a foggy harbor at dawn, fishing boats drifting",
		pipeline.KeyScenePrompts: []string{
			"fishing boats drifting through a foggy harbor at dawn",
			"dawn light over harbor water, boats in fog",
		},
	})
	result := checker.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	score, ok := result.ContextUpdates[pipeline.KeyQAScore].(float64)
	if !ok {
		t.Fatal("expected a lexical score without an LLM scorer")
	}
	if score <= 0 || score > 1 {
		t.Fatalf("lexical score out of range: %v", score)
	}
}

func TestLexicalFallbackNeedsObservations(t *testing.T) {
	if _, ok := lexicalScore("a foggy harbor", nil); ok {
		t.Fatal("expected no score without observations")
	}
	if _, ok := lexicalScore("", []string{"a scene"}); ok {
		t.Fatal("expected no score without a prompt")
	}
}

func TestDurationDriftFailsVerdict(t *testing.T) {
	cfg := qualityConfig(t)
	// 81 frames at 16 fps is about 5.06s; 9s is well past the tolerance.
	checker := newTestChecker(cfg, &stubScorer{}, healthyProbe("9.0"))

	result := checker.Execute(context.Background(), videoContext(t, nil))
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("soft step must succeed: %s", result.ErrorMessage)
	}
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictFail {
		t.Fatalf("unexpected verdict: %v", got)
	}
	if !strings.Contains(result.Warning, "drifts") {
		t.Fatalf("expected drift warning, got %q", result.Warning)
	}
}

func TestAlignmentStrongPasses(t *testing.T) {
	cfg := qualityConfig(t)
	scorer := &stubScorer{configured: true, alignment: llm.Alignment{Score: 0.91, Reason: "close match"}}
	checker := newTestChecker(cfg, scorer, healthyProbe("5.06"))

	rc := videoContext(t, map[string]any{
		pipeline.KeyScenePrompts: []string{"harbor at dawn", "fog lifting"},
	})
	result := checker.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded || result.Warning != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictPass {
		t.Fatalf("unexpected verdict: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeyQAScore]; got != 0.91 {
		t.Fatalf("unexpected score: %v", got)
	}
	if len(scorer.prompts) != 1 || scorer.prompts[0] != "a foggy harbor at dawn" {
		t.Fatalf("unexpected scored prompts: %v", scorer.prompts)
	}
}

func TestAlignmentAcceptableWarns(t *testing.T) {
	cfg := qualityConfig(t)
	scorer := &stubScorer{configured: true, alignment: llm.Alignment{Score: 0.78}}
	checker := newTestChecker(cfg, scorer, healthyProbe("5.06"))

	rc := videoContext(t, map[string]any{pipeline.KeyScenePrompts: []string{"scene"}})
	result := checker.Execute(context.Background(), rc)
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictWarn {
		t.Fatalf("unexpected verdict: %v", got)
	}
}

func TestAlignmentLowFails(t *testing.T) {
	cfg := qualityConfig(t)
	scorer := &stubScorer{configured: true, alignment: llm.Alignment{Score: 0.41}}
	checker := newTestChecker(cfg, scorer, healthyProbe("5.06"))

	rc := videoContext(t, map[string]any{pipeline.KeyScenePrompts: []string{"scene"}})
	result := checker.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("soft step must succeed: %s", result.ErrorMessage)
	}
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictFail {
		t.Fatalf("unexpected verdict: %v", got)
	}
	if !strings.Contains(result.Warning, "below") {
		t.Fatalf("expected low-score warning, got %q", result.Warning)
	}
}

func TestScorerFailureDowngradesToWarning(t *testing.T) {
	cfg := qualityConfig(t)
	scorer := &stubScorer{configured: true, err: errors.New("llm api request failed with status 500")}
	checker := newTestChecker(cfg, scorer, healthyProbe("5.06"))

	rc := videoContext(t, map[string]any{pipeline.KeyScenePrompts: []string{"scene"}})
	result := checker.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("scorer failure must not fail the step: %s", result.ErrorMessage)
	}
	if !strings.Contains(result.Warning, "alignment scoring failed") {
		t.Fatalf("unexpected warning: %q", result.Warning)
	}
	if got := result.ContextUpdates[pipeline.KeyQAVerdict]; got != VerdictPass {
		t.Fatalf("mechanical verdict should stand: %v", got)
	}
}

func TestReportWrittenNextToVideo(t *testing.T) {
	cfg := qualityConfig(t)
	checker := newTestChecker(cfg, &stubScorer{}, healthyProbe("5.06"))

	rc := videoContext(t, nil)
	if result := checker.Execute(context.Background(), rc); result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	reportPath := filepath.Join(filepath.Dir(rc.String(pipeline.KeyVideoPath)), "qa.json")
	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Verdict != VerdictPass || report.CheckedAt.IsZero() {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestProbeErrorFailsStep(t *testing.T) {
	cfg := qualityConfig(t)
	checker := newTestChecker(cfg, &stubScorer{}, func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, errors.New("ffprobe media.mp4: exit status 1")
	})
	result := checker.Execute(context.Background(), videoContext(t, nil))
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "ffprobe") {
		t.Fatalf("unexpected message: %s", result.ErrorMessage)
	}
}
