package runner_test

import (
	"errors"
	"strings"
	"testing"

	"slate/internal/recovery"
	"slate/internal/runner"
)

func TestRequestValidation(t *testing.T) {
	seed := int64(42)
	tests := []struct {
		name    string
		request runner.Request
		wantErr string
	}{
		{
			name:    "production without pipeline id",
			request: runner.Request{Type: runner.TypeProduction},
			wantErr: "PipelineID is required for production runs",
		},
		{
			name:    "narrative without script path",
			request: runner.Request{Type: runner.TypeNarrative},
			wantErr: "ScriptPath is required for narrative runs",
		},
		{
			name:    "missing type",
			request: runner.Request{},
			wantErr: "Type is required",
		},
		{
			name:    "unknown type",
			request: runner.Request{Type: "rehearsal"},
			wantErr: "Type must be one of",
		},
		{
			name: "unknown temporal mode",
			request: runner.Request{
				Type:         runner.TypeProduction,
				PipelineID:   "text-to-video",
				TemporalMode: "fast",
			},
			wantErr: "TemporalMode must be one of",
		},
		{
			name: "valid production",
			request: runner.Request{
				Type:       runner.TypeProduction,
				PipelineID: "text-to-video",
				SampleID:   "harbor-dawn",
				Seed:       &seed,
			},
		},
		{
			name: "valid narrative",
			request: runner.Request{
				Type:         runner.TypeNarrative,
				ScriptPath:   "/tmp/script.txt",
				TemporalMode: "off",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRequestValidationCategory(t *testing.T) {
	err := runner.Request{Type: runner.TypeProduction}.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	var pipelineErr *recovery.PipelineError
	if !errors.As(err, &pipelineErr) {
		t.Fatalf("Validate() error type = %T, want *recovery.PipelineError", err)
	}
	if pipelineErr.Category != recovery.CategoryValidationFailed {
		t.Fatalf("Category = %q, want %q", pipelineErr.Category, recovery.CategoryValidationFailed)
	}
}

func TestSampleCatalog(t *testing.T) {
	sample, ok := runner.SampleByID("")
	if !ok {
		t.Fatal("SampleByID(\"\") not found, want default sample")
	}
	if sample.ID != runner.DefaultSampleID {
		t.Fatalf("SampleByID(\"\") = %q, want %q", sample.ID, runner.DefaultSampleID)
	}

	if _, ok := runner.SampleByID("no-such-sample"); ok {
		t.Fatal("SampleByID(no-such-sample) found, want miss")
	}

	samples := runner.Samples()
	if len(samples) < 3 {
		t.Fatalf("Samples() returned %d entries, want at least 3", len(samples))
	}
	for _, s := range samples {
		if s.ID == "" || s.Prompt == "" {
			t.Fatalf("sample %+v has empty fields", s)
		}
	}
}
