package recovery

import "time"

// Code is a machine-readable identifier for a specific failure mode. Codes
// are finer-grained than categories and carry the metadata needed to present
// end-user guidance.
type Code string

// Startup and state initialization.
const (
	CodeConfigMissing        Code = "CONFIG_MISSING"
	CodeConfigInvalid        Code = "CONFIG_INVALID"
	CodeWorkspaceUnavailable Code = "WORKSPACE_UNAVAILABLE"
	CodeStateInitFailed      Code = "STATE_INIT_FAILED"
	CodeLockHeld             Code = "LOCK_HELD"
	CodeDependencyMissing    Code = "DEPENDENCY_MISSING"
)

// Generation provider.
const (
	CodeBackendUnreachable  Code = "BACKEND_UNREACHABLE"
	CodeBackendBusy         Code = "BACKEND_BUSY"
	CodePromptRejected      Code = "PROMPT_REJECTED"
	CodeWorkflowInvalid     Code = "WORKFLOW_INVALID"
	CodeNodeMappingMissing  Code = "NODE_MAPPING_MISSING"
	CodeImageUploadFailed   Code = "IMAGE_UPLOAD_FAILED"
	CodeGenerationBlocked   Code = "GENERATION_BLOCKED"
	CodeGenerationTimeout   Code = "GENERATION_TIMEOUT"
	CodeMarkerTimeout       Code = "MARKER_TIMEOUT"
	CodeOutputMissing       Code = "OUTPUT_MISSING"
	CodeTemporalUnsupported Code = "TEMPORAL_UNSUPPORTED"
)

// LLM scoring.
const (
	CodeLLMRateLimited     Code = "LLM_RATE_LIMITED"
	CodeLLMTimeout         Code = "LLM_TIMEOUT"
	CodeLLMUnavailable     Code = "LLM_UNAVAILABLE"
	CodeLLMResponseInvalid Code = "LLM_RESPONSE_INVALID"
	CodeTokenOverflow      Code = "TOKEN_OVERFLOW"
	CodeQuotaExhausted     Code = "QUOTA_EXHAUSTED"
)

// Resources.
const (
	CodeGPUOutOfMemory     Code = "GPU_OUT_OF_MEMORY"
	CodeVRAMLow            Code = "VRAM_LOW"
	CodeDiskFull           Code = "DISK_FULL"
	CodeProcessSpawnFailed Code = "PROCESS_SPAWN_FAILED"
	CodeProcessFailed      Code = "PROCESS_FAILED"
)

// Persistence.
const (
	CodeLedgerOpenFailed   Code = "LEDGER_OPEN_FAILED"
	CodeLedgerWriteFailed  Code = "LEDGER_WRITE_FAILED"
	CodeSummaryWriteFailed Code = "SUMMARY_WRITE_FAILED"
	CodeManifestFailed     Code = "MANIFEST_FAILED"
)

// Validation.
const (
	CodeRequestInvalid    Code = "REQUEST_INVALID"
	CodeScriptInvalid     Code = "SCRIPT_INVALID"
	CodeSceneEmpty        Code = "SCENE_EMPTY"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeQualityBelowFloor Code = "QUALITY_BELOW_FLOOR"
)

// Network.
const (
	CodeNetworkTimeout    Code = "NETWORK_TIMEOUT"
	CodeConnectionRefused Code = "CONNECTION_REFUSED"
	CodeHTTPError         Code = "HTTP_ERROR"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeUnknown           Code = "UNKNOWN"
)

// Severity grades how loudly a failure mode should surface.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// CodeInfo carries the per-code policy consulted for user messaging and
// retry pacing.
type CodeInfo struct {
	Retryable  bool
	RetryDelay time.Duration
	MaxRetries int
	Severity   Severity
	Action     string
}

var codeTable = map[Code]CodeInfo{
	CodeConfigMissing:        {Severity: SeverityCritical, Action: "Run 'slate config init' and edit the generated file."},
	CodeConfigInvalid:        {Severity: SeverityCritical, Action: "Fix the reported fields in the config file."},
	CodeWorkspaceUnavailable: {Severity: SeverityCritical, Action: "Check that the workspace directory exists and is writable."},
	CodeStateInitFailed:      {Severity: SeverityCritical, Action: "Remove stale state files from the workspace and rerun."},
	CodeLockHeld:             {Severity: SeverityError, Action: "Another run is in progress; wait for it or remove a stale lock file."},
	CodeDependencyMissing:    {Severity: SeverityCritical, Action: "Install the missing tool and ensure it is on PATH."},

	CodeBackendUnreachable:  {Retryable: true, RetryDelay: 5 * time.Second, MaxRetries: 5, Severity: SeverityError, Action: "Start the generation backend and verify the configured address."},
	CodeBackendBusy:         {Retryable: true, RetryDelay: 10 * time.Second, MaxRetries: 6, Severity: SeverityWarning, Action: "The backend is processing another job; the run will retry."},
	CodePromptRejected:      {Severity: SeverityError, Action: "Rewrite the prompt; the backend rejected it."},
	CodeWorkflowInvalid:     {Severity: SeverityError, Action: "Fix the workflow template; the backend reported invalid nodes."},
	CodeNodeMappingMissing:  {Severity: SeverityError, Action: "Add the missing node mapping to the workflow template."},
	CodeImageUploadFailed:   {Retryable: true, RetryDelay: 2 * time.Second, MaxRetries: 2, Severity: SeverityError, Action: "Check the reference image path and backend upload endpoint."},
	CodeGenerationBlocked:   {Severity: SeverityError, Action: "Reduce resolution or frame count, or adjust the prompt."},
	CodeGenerationTimeout:   {Retryable: true, RetryDelay: 15 * time.Second, MaxRetries: 2, Severity: SeverityError, Action: "Generation exceeded its deadline; raise the timeout or lower the workload."},
	CodeMarkerTimeout:       {Retryable: true, RetryDelay: 15 * time.Second, MaxRetries: 2, Severity: SeverityError, Action: "No done marker appeared; check that the workflow writes one."},
	CodeOutputMissing:       {Severity: SeverityError, Action: "The backend finished without producing the expected file; check its output directory."},
	CodeTemporalUnsupported: {Severity: SeverityWarning, Action: "The selected backend ignores temporal mode; rerun with it off."},

	CodeLLMRateLimited:     {Retryable: true, RetryDelay: 30 * time.Second, MaxRetries: 5, Severity: SeverityWarning, Action: "The scoring API is rate limiting; the run will back off and retry."},
	CodeLLMTimeout:         {Retryable: true, RetryDelay: 5 * time.Second, MaxRetries: 3, Severity: SeverityWarning, Action: "The scoring API timed out; the run will retry."},
	CodeLLMUnavailable:     {Retryable: true, RetryDelay: 10 * time.Second, MaxRetries: 3, Severity: SeverityWarning, Action: "The scoring API is unavailable; check connectivity and status."},
	CodeLLMResponseInvalid: {Retryable: true, RetryDelay: 2 * time.Second, MaxRetries: 2, Severity: SeverityWarning, Action: "The scoring API returned an unparseable payload; the run will retry once."},
	CodeTokenOverflow:      {Severity: SeverityError, Action: "Shorten the prompt or raise the token budget."},
	CodeQuotaExhausted:     {Severity: SeverityCritical, Action: "The API quota is exhausted; add credit or wait for the quota window to reset."},

	CodeGPUOutOfMemory:     {Severity: SeverityError, Action: "Reduce resolution, frame count, or batch size."},
	CodeVRAMLow:            {Severity: SeverityWarning, Action: "Free GPU memory before the next run."},
	CodeDiskFull:           {Severity: SeverityCritical, Action: "Free disk space in the workspace."},
	CodeProcessSpawnFailed: {Severity: SeverityError, Action: "Check that the tool is installed and executable."},
	CodeProcessFailed:      {Severity: SeverityError, Action: "Inspect the captured stderr in the run log."},

	CodeLedgerOpenFailed:   {Severity: SeverityError, Action: "Check the ledger database file permissions."},
	CodeLedgerWriteFailed:  {Retryable: true, RetryDelay: time.Second, MaxRetries: 3, Severity: SeverityWarning, Action: "The run ledger write failed; history may be incomplete."},
	CodeSummaryWriteFailed: {Severity: SeverityError, Action: "Check workspace permissions; the run summary could not be written."},
	CodeManifestFailed:     {Severity: SeverityWarning, Action: "The artifact manifest could not be written; outputs are still on disk."},

	CodeRequestInvalid:    {Severity: SeverityError, Action: "Fix the rejected request fields and resubmit."},
	CodeScriptInvalid:     {Severity: SeverityError, Action: "Fix the script file; see the reported line."},
	CodeSceneEmpty:        {Severity: SeverityError, Action: "Every scene needs a non-empty prompt."},
	CodeValidationFailed:  {Severity: SeverityError, Action: "Resolve the listed validation issues."},
	CodeQualityBelowFloor: {Severity: SeverityWarning, Action: "The output scored below the quality floor; review it manually."},

	CodeNetworkTimeout:    {Retryable: true, RetryDelay: 2 * time.Second, MaxRetries: 3, Severity: SeverityWarning, Action: "A network call timed out; the run will retry."},
	CodeConnectionRefused: {Retryable: true, RetryDelay: 5 * time.Second, MaxRetries: 3, Severity: SeverityError, Action: "Connection refused; check that the service is listening."},
	CodeHTTPError:         {Severity: SeverityError, Action: "The service returned an unexpected HTTP status; see details."},
	CodeRateLimited:       {Retryable: true, RetryDelay: time.Second, MaxRetries: 5, Severity: SeverityWarning, Action: "Rate limited; the run will back off and retry."},
	CodeUnknown:           {Severity: SeverityError, Action: "Inspect the run log; this failure mode is not recognized."},
}

// Lookup returns the policy for a code.
func Lookup(code Code) (CodeInfo, bool) {
	info, ok := codeTable[code]
	return info, ok
}

// CodeFor bridges the compact category set onto the taxonomy for user
// messaging.
func CodeFor(category Category) Code {
	switch category {
	case CategoryTokenOverflow:
		return CodeTokenOverflow
	case CategoryAPIRateLimit:
		return CodeRateLimited
	case CategoryAPIQuota:
		return CodeQuotaExhausted
	case CategoryAPITimeout:
		return CodeNetworkTimeout
	case CategoryAPIUnavailable:
		return CodeBackendUnreachable
	case CategoryValidationFailed:
		return CodeValidationFailed
	case CategoryWorkflowInvalid:
		return CodeWorkflowInvalid
	case CategoryMappingMissing:
		return CodeNodeMappingMissing
	case CategoryImageUploadFailed:
		return CodeImageUploadFailed
	case CategoryGenerationBlocked:
		return CodeGenerationBlocked
	default:
		return CodeUnknown
	}
}
