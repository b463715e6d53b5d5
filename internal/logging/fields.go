package logging

// Standardized structured logging keys shared across packages.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRunID carries the pipeline run identifier.
	FieldRunID = "run_id"
	// FieldPipeline carries the pipeline definition id.
	FieldPipeline = "pipeline"
	// FieldStep carries the current step id.
	FieldStep = "step"
	// FieldStatus carries a step or run status value.
	FieldStatus = "status"
	// FieldEvent carries a reporter event kind.
	FieldEvent = "event"
	// FieldCategory carries an error classification category.
	FieldCategory = "category"
	// FieldRecovery carries the recovery policy chosen for an error.
	FieldRecovery = "recovery"
	// FieldAttempt carries a 1-based retry attempt counter.
	FieldAttempt = "attempt"
	// FieldBackend names the generation backend in use.
	FieldBackend = "backend"
	// FieldPath carries a filesystem path of interest.
	FieldPath = "path"
	// FieldDuration carries an operation wall-clock duration.
	FieldDuration = "duration"
	// FieldWarning flags soft failures that should stand out in structured logs.
	FieldWarning = "warning"
)
