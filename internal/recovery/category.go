package recovery

// Category is the compact classification that drives in-pipeline control
// flow. The larger Code taxonomy drives user messaging.
type Category string

const (
	CategoryTokenOverflow     Category = "token_overflow"
	CategoryAPIRateLimit      Category = "api_rate_limit"
	CategoryAPIQuota          Category = "api_quota"
	CategoryAPITimeout        Category = "api_timeout"
	CategoryAPIUnavailable    Category = "api_unavailable"
	CategoryValidationFailed  Category = "validation_failed"
	CategoryWorkflowInvalid   Category = "workflow_invalid"
	CategoryMappingMissing    Category = "mapping_missing"
	CategoryImageUploadFailed Category = "image_upload_failed"
	CategoryGenerationBlocked Category = "generation_blocked"
	CategoryUnknown           Category = "unknown"
)

// Recovery names the policy applied when a step fails with a given category.
type Recovery string

const (
	// RecoveryRetry marks transient conditions worth retrying with backoff.
	RecoveryRetry Recovery = "retry"
	// RecoveryUserAction marks conditions a human has to fix before rerunning.
	RecoveryUserAction Recovery = "user_action"
	// RecoveryFatal marks conditions where the run must abort immediately.
	RecoveryFatal Recovery = "fatal"
)

var recoveryByCategory = map[Category]Recovery{
	CategoryAPITimeout:        RecoveryRetry,
	CategoryAPIRateLimit:      RecoveryRetry,
	CategoryAPIUnavailable:    RecoveryRetry,
	CategoryTokenOverflow:     RecoveryUserAction,
	CategoryValidationFailed:  RecoveryUserAction,
	CategoryWorkflowInvalid:   RecoveryUserAction,
	CategoryMappingMissing:    RecoveryUserAction,
	CategoryImageUploadFailed: RecoveryUserAction,
	CategoryGenerationBlocked: RecoveryUserAction,
	CategoryAPIQuota:          RecoveryFatal,
}

// RecoveryFor maps a category to its recovery policy. Unknown failures go to
// a human rather than a retry loop.
func RecoveryFor(category Category) Recovery {
	if recovery, ok := recoveryByCategory[category]; ok {
		return recovery
	}
	return RecoveryUserAction
}
