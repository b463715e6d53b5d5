package pipeline_test

import (
	"encoding/json"
	"slices"
	"testing"

	"slate/internal/pipeline"
)

func TestContextTypedGetters(t *testing.T) {
	rc := pipeline.NewContextWith(map[string]any{
		pipeline.KeyVideoPath:         "/runs/abc/final.mp4",
		pipeline.KeyFrameCount:        81,
		pipeline.KeyQAScore:           0.86,
		pipeline.KeyEnhanceApplied:    true,
		pipeline.KeyScenePaths:        []string{"a.mp4", "b.mp4"},
		pipeline.KeyGenerationSeconds: 42.5,
	})

	if got := rc.String(pipeline.KeyVideoPath); got != "/runs/abc/final.mp4" {
		t.Fatalf("String = %q", got)
	}
	if got := rc.Int(pipeline.KeyFrameCount); got != 81 {
		t.Fatalf("Int = %d", got)
	}
	if got := rc.Float64(pipeline.KeyQAScore); got != 0.86 {
		t.Fatalf("Float64 = %v", got)
	}
	if !rc.Bool(pipeline.KeyEnhanceApplied) {
		t.Fatal("Bool = false, want true")
	}
	if got := rc.StringSlice(pipeline.KeyScenePaths); !slices.Equal(got, []string{"a.mp4", "b.mp4"}) {
		t.Fatalf("StringSlice = %v", got)
	}
	if rc.Has(pipeline.KeyBenchPath) {
		t.Fatal("Has reported a key that was never produced")
	}
	if got := rc.String(pipeline.KeyBenchPath); got != "" {
		t.Fatalf("absent String = %q, want empty", got)
	}
}

func TestContextToleratesJSONNumericTypes(t *testing.T) {
	// Values restored from a persisted summary arrive as float64 and []any.
	raw, err := json.Marshal(map[string]any{
		pipeline.KeyFrameCount: 81,
		pipeline.KeyScenePaths: []string{"a.mp4"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored map[string]any
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rc := pipeline.NewContextWith(restored)
	if got := rc.Int(pipeline.KeyFrameCount); got != 81 {
		t.Fatalf("Int after round trip = %d", got)
	}
	if got := rc.Float64(pipeline.KeyFrameCount); got != 81 {
		t.Fatalf("Float64 after round trip = %v", got)
	}
	if got := rc.StringSlice(pipeline.KeyScenePaths); !slices.Equal(got, []string{"a.mp4"}) {
		t.Fatalf("StringSlice after round trip = %v", got)
	}
}

func TestContextSnapshotIsACopy(t *testing.T) {
	rc := pipeline.NewContextWith(map[string]any{pipeline.KeyPrompt: "a red fox"})
	snap := rc.Snapshot()
	snap[pipeline.KeyPrompt] = "mutated"
	if got := rc.String(pipeline.KeyPrompt); got != "a red fox" {
		t.Fatalf("snapshot mutation leaked into context: %q", got)
	}
}
