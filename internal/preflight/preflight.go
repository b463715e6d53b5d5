package preflight

import (
	"context"

	"slate/internal/config"
	"slate/internal/deps"
	"slate/internal/generate"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the feature that needs them is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Artifact directories (always checked)
	results = append(results, CheckDirectoryAccess("Runs directory", cfg.Paths.RunsDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Workflow directory", cfg.Paths.WorkflowDir))

	// Free space where run artifacts and videos land.
	results = append(results, CheckDiskSpace("Disk space", cfg.Paths.RunsDir, cfg.Preflight.MinFreeDiskGB))

	// ffmpeg / ffprobe
	for _, status := range deps.Check(cfg) {
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   depDetail(status),
		})
	}

	// Active generation backend
	if cfg.Generation.Backend == generate.BackendFastVideo {
		results = append(results, CheckFastVideo(ctx, cfg))
	} else {
		results = append(results, CheckComfy(ctx, cfg))
	}

	// QA scoring LLM
	if cfg.Quality.Enabled {
		results = append(results, CheckLLM(ctx, "Quality LLM", cfg.GetLLM()))
	}

	return results
}

// Failures returns the required checks that did not pass. Optional checks
// never block a run.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}

func depDetail(status deps.Status) string {
	if status.Available {
		return status.Command
	}
	return status.Detail
}
