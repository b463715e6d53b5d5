package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"slate/internal/pipeline"
	"slate/internal/runstate"
)

// Summary is the full terminal artifact for one run: identity, per-step
// outcomes, every run context field, and accumulated warnings.
type Summary struct {
	RunID          string          `json:"runId"`
	PipelineID     string          `json:"pipelineId"`
	SampleID       string          `json:"sampleId,omitempty"`
	ScriptPath     string          `json:"scriptPath,omitempty"`
	Status         runstate.Status `json:"status"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	DurationMS     int64           `json:"durationMs"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	Warnings       []string        `json:"warnings"`
	Steps          []StepOutcome   `json:"steps"`
	Context        map[string]any  `json:"context"`
	Preflight      any             `json:"preflight,omitempty"`
	VideoPath      string          `json:"videoPath,omitempty"`
	VideoSizeBytes int64           `json:"videoSizeBytes,omitempty"`
	QAVerdict      string          `json:"qaVerdict,omitempty"`
	QAScore        float64         `json:"qaScore,omitempty"`
	ManifestPath   string          `json:"manifestPath,omitempty"`
	BenchPath      string          `json:"benchPath,omitempty"`
}

// StepOutcome is one step's terminal result inside the summary.
type StepOutcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// LiteSummary is the reduced polling artifact: a strict subset of Summary.
type LiteSummary struct {
	RunID      string          `json:"runId"`
	PipelineID string          `json:"pipelineId"`
	Status     runstate.Status `json:"status"`
	VideoPath  string          `json:"videoPath,omitempty"`
	QAVerdict  string          `json:"qaVerdict,omitempty"`
	Warnings   []string        `json:"warnings"`
	FinishedAt time.Time       `json:"finishedAt"`
}

// BuildSummary folds the terminal run state, the executor outcome, and the
// run context snapshot into the persisted summary.
func BuildSummary(run *runstate.RunState, meta Meta, outcome pipeline.Outcome, order []string, contextSnapshot map[string]any) Summary {
	summary := Summary{
		RunID:        run.RunID,
		PipelineID:   run.PipelineID,
		SampleID:     meta.SampleID,
		ScriptPath:   meta.ScriptPath,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		DurationMS:   run.DurationMS,
		ErrorMessage: run.ErrorMessage,
		Warnings:     append([]string{}, run.Warnings...),
		Context:      contextSnapshot,
	}
	if run.FinishedAt != nil {
		summary.FinishedAt = *run.FinishedAt
	}

	for _, id := range order {
		result, ok := outcome.Results[id]
		if !ok {
			continue
		}
		step := StepOutcome{ID: id, Status: string(result.Status)}
		switch {
		case result.ErrorMessage != "":
			step.Detail = result.ErrorMessage
		case result.Warning != "":
			step.Detail = result.Warning
		case result.Status == pipeline.StatusSkipped:
			step.Detail = skipMessage(result)
		}
		summary.Steps = append(summary.Steps, step)
	}

	if v, ok := contextSnapshot[pipeline.KeyPreflight]; ok {
		summary.Preflight = v
	}
	summary.VideoPath, _ = contextSnapshot[pipeline.KeyVideoPath].(string)
	summary.QAVerdict, _ = contextSnapshot[pipeline.KeyQAVerdict].(string)
	summary.QAScore = floatValue(contextSnapshot[pipeline.KeyQAScore])
	summary.ManifestPath, _ = contextSnapshot[pipeline.KeyManifestPath].(string)
	summary.BenchPath, _ = contextSnapshot[pipeline.KeyBenchPath].(string)
	if summary.VideoPath != "" {
		if info, err := os.Stat(summary.VideoPath); err == nil {
			summary.VideoSizeBytes = info.Size()
		}
	}
	return summary
}

// Lite reduces the summary to its polling subset.
func (s Summary) Lite() LiteSummary {
	return LiteSummary{
		RunID:      s.RunID,
		PipelineID: s.PipelineID,
		Status:     s.Status,
		VideoPath:  s.VideoPath,
		QAVerdict:  s.QAVerdict,
		Warnings:   append([]string{}, s.Warnings...),
		FinishedAt: s.FinishedAt,
	}
}

// Encode renders the summary as indented JSON.
func (s Summary) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Encode renders the lite summary as indented JSON.
func (s LiteSummary) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ParseSummary reads a persisted summary.
func ParseSummary(data []byte) (Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("parse summary: %w", err)
	}
	return s, nil
}

// ParseLiteSummary reads a persisted lite summary.
func ParseLiteSummary(data []byte) (LiteSummary, error) {
	var s LiteSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return LiteSummary{}, fmt.Errorf("parse lite summary: %w", err)
	}
	return s, nil
}

// RenderReport renders the human-readable run report.
func RenderReport(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "slate run report\n")
	fmt.Fprintf(&b, "================\n\n")
	fmt.Fprintf(&b, "Run:       %s\n", s.RunID)
	fmt.Fprintf(&b, "Pipeline:  %s\n", s.PipelineID)
	if s.SampleID != "" {
		fmt.Fprintf(&b, "Sample:    %s\n", s.SampleID)
	}
	if s.ScriptPath != "" {
		fmt.Fprintf(&b, "Script:    %s\n", s.ScriptPath)
	}
	fmt.Fprintf(&b, "Status:    %s\n", s.Status)
	fmt.Fprintf(&b, "Started:   %s\n", s.StartedAt.UTC().Format(time.RFC3339))
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished:  %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Duration:  %s\n", formatDuration(s.DurationMS))

	if len(s.Steps) > 0 {
		fmt.Fprintf(&b, "\nSteps:\n")
		titles := make([]string, len(s.Steps))
		width := 0
		for i, step := range s.Steps {
			titles[i] = StepTitle(step.ID)
			if len(titles[i]) > width {
				width = len(titles[i])
			}
		}
		for i, step := range s.Steps {
			fmt.Fprintf(&b, "  %-*s  %-10s", width, titles[i], step.Status)
			if step.Detail != "" {
				fmt.Fprintf(&b, "  %s", step.Detail)
			}
			fmt.Fprintf(&b, "\n")
		}
	}

	if s.VideoPath != "" || s.QAVerdict != "" || s.ManifestPath != "" || s.BenchPath != "" {
		fmt.Fprintf(&b, "\nOutputs:\n")
		if s.VideoPath != "" {
			if s.VideoSizeBytes > 0 {
				fmt.Fprintf(&b, "  Video:      %s (%s)\n", s.VideoPath, humanize.Bytes(uint64(s.VideoSizeBytes)))
			} else {
				fmt.Fprintf(&b, "  Video:      %s\n", s.VideoPath)
			}
		}
		if s.QAVerdict != "" {
			if s.QAScore > 0 {
				fmt.Fprintf(&b, "  QA verdict: %s (score %.2f)\n", s.QAVerdict, s.QAScore)
			} else {
				fmt.Fprintf(&b, "  QA verdict: %s\n", s.QAVerdict)
			}
		}
		if s.BenchPath != "" {
			fmt.Fprintf(&b, "  Benchmark:  %s\n", s.BenchPath)
		}
		if s.ManifestPath != "" {
			fmt.Fprintf(&b, "  Manifest:   %s\n", s.ManifestPath)
		}
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings:\n")
		for _, warning := range s.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warning)
		}
	}

	if s.ErrorMessage != "" {
		fmt.Fprintf(&b, "\nError:\n  %s\n", s.ErrorMessage)
	}
	return b.String()
}

// StepTitle renders a step identifier as a display heading, so
// "workflow-prepare" prints as "Workflow Prepare".
func StepTitle(id string) string {
	title := strings.TrimSpace(strings.ReplaceAll(id, "-", " "))
	if title == "" {
		return id
	}
	return cases.Title(language.Und).String(title)
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d >= time.Second {
		return d.Round(time.Second).String()
	}
	return d.String()
}

func floatValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
