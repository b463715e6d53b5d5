package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/flags"
	"slate/internal/pipeline"
)

const prepareProfileDoc = `{
	"workflow": {
		"1": {"class_type": "CLIPTextEncode", "inputs": {"text": ""}},
		"2": {"class_type": "KSampler", "inputs": {"seed": 0, "positive": ["1", 0]}},
		"3": {"class_type": "SaveVideo", "inputs": {"filename_prefix": "video/out", "images": ["2", 0]}}
	},
	"mapping": {"promptNode": "1", "seedNode": "2", "prefixNode": "3"}
}`

func writeTestProfile(t *testing.T, dir, id, doc string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
}

func newTestStore(t *testing.T, overrides map[string]string) *flags.Store {
	t.Helper()
	store, err := flags.NewStore(overrides)
	if err != nil {
		t.Fatalf("flags store: %v", err)
	}
	return store
}

func TestPreparerInjectsAndMerges(t *testing.T) {
	dir := t.TempDir()
	writeTestProfile(t, dir, "wan-t2v", prepareProfileDoc)
	prep := NewPreparer(dir, "wan-t2v", Params{
		Prompt:       "fallback prompt",
		Seed:         11,
		OutputPrefix: "slate/run-1/clip",
	}, newTestStore(t, nil), nil)

	rc := pipeline.NewContextWith(map[string]any{pipeline.KeyPrompt: "a red kite over dunes"})
	result := prep.Execute(context.Background(), rc)
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", result.Status, result.ErrorMessage)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %s", result.Warning)
	}
	graph, ok := result.ContextUpdates[pipeline.KeyWorkflowGraph].(Graph)
	if !ok {
		t.Fatalf("expected graph update, got %T", result.ContextUpdates[pipeline.KeyWorkflowGraph])
	}
	if got := graph["1"].Inputs["text"]; got != "a red kite over dunes" {
		t.Fatalf("context prompt not injected: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeySeed]; got != int64(11) {
		t.Fatalf("unexpected seed update: %v", got)
	}
	if got := result.ContextUpdates[pipeline.KeyOutputPrefix]; got != "slate/run-1/clip" {
		t.Fatalf("unexpected prefix update: %v", got)
	}
}

func TestPreparerWarnsOnValidationIssues(t *testing.T) {
	dir := t.TempDir()
	broken := strings.Replace(prepareProfileDoc, `["1", 0]`, `["9", 0]`, 1)
	writeTestProfile(t, dir, "wan-t2v", broken)
	prep := NewPreparer(dir, "wan-t2v", Params{Prompt: "p"}, newTestStore(t, nil), nil)

	result := prep.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusSucceeded {
		t.Fatalf("warn policy should not fail the step: %s", result.ErrorMessage)
	}
	if !strings.Contains(result.Warning, "validation") {
		t.Fatalf("expected validation warning, got %q", result.Warning)
	}
	if _, ok := result.ContextUpdates[pipeline.KeyWorkflowGraph]; !ok {
		t.Fatal("expected graph update despite warning")
	}
}

func TestPreparerBlocksOnValidationGuard(t *testing.T) {
	dir := t.TempDir()
	broken := strings.Replace(prepareProfileDoc, `["1", 0]`, `["9", 0]`, 1)
	writeTestProfile(t, dir, "wan-t2v", broken)
	store := newTestStore(t, map[string]string{flags.ValidationGuard: "block"})
	prep := NewPreparer(dir, "wan-t2v", Params{Prompt: "p"}, store, nil)

	result := prep.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("block policy should fail the step, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "validation") {
		t.Fatalf("unexpected error message: %s", result.ErrorMessage)
	}
}

func TestPreparerMissingProfileFails(t *testing.T) {
	prep := NewPreparer(t.TempDir(), "absent", Params{Prompt: "p"}, newTestStore(t, nil), nil)
	result := prep.Execute(context.Background(), pipeline.NewContext())
	if result.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "not found") {
		t.Fatalf("unexpected error message: %s", result.ErrorMessage)
	}
}
