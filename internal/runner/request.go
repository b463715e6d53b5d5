package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"slate/internal/recovery"
)

// Type selects which shipped pipeline a run uses.
type Type string

const (
	// TypeProduction renders one clip from a curated sample prompt, or a
	// caller-supplied prompt, through the configured backend.
	TypeProduction Type = "production"
	// TypeNarrative expands a script into scenes, renders each, and
	// stitches the result into one video.
	TypeNarrative Type = "narrative"
)

// Request describes one run. Invalid requests are rejected before the
// run lock, the ledger, or any directory is touched.
type Request struct {
	// Type picks the pipeline: production or narrative.
	Type Type `validate:"required,oneof=production narrative"`
	// PipelineID names the workflow profile production runs load.
	PipelineID string `validate:"required_if=Type production"`
	// ScriptPath points at the scene script narrative runs expand.
	ScriptPath string `validate:"required_if=Type narrative"`
	// SampleID picks a curated sample prompt; empty selects the default.
	SampleID string
	// Prompt overrides the sample prompt for production runs.
	Prompt string
	// Seed fixes the generation seed for reproducible reruns.
	Seed *int64
	// TemporalMode overrides the configured post-processing mode.
	TemporalMode string `validate:"omitempty,oneof=on off auto adaptive"`
	// Verbose logs the resolved plan before execution.
	Verbose bool
	// DryRun reports the planned step order without running anything.
	DryRun bool
}

// Response reports a run outcome to the caller. Error text is already
// classified and human-readable; callers print it, they never parse it.
type Response struct {
	Success      bool
	RunID        string
	Error        string
	PlannedSteps []string
}

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects malformed requests with a validation-category error
// listing every failed field.
func (r Request) Validate() error {
	err := requestValidator.Struct(r)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return recovery.Wrap(recovery.CategoryValidationFailed, "runner", "validate request", err)
	}
	problems := make([]string, 0, len(fields))
	for _, field := range fields {
		problems = append(problems, describeFieldError(field))
	}
	return recovery.Errorf(recovery.CategoryValidationFailed,
		"invalid run request: %s", strings.Join(problems, "; "))
}

// describeFieldError renders one field failure the way a CLI user reads
// it, without leaking validator tag syntax.
func describeFieldError(field validator.FieldError) string {
	switch field.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field.StructField())
	case "required_if":
		if parts := strings.Fields(field.Param()); len(parts) == 2 {
			return fmt.Sprintf("%s is required for %s runs", field.StructField(), parts[1])
		}
		return fmt.Sprintf("%s is required", field.StructField())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field.StructField(), field.Param())
	default:
		return fmt.Sprintf("%s is invalid", field.StructField())
	}
}
