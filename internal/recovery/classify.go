package recovery

import "strings"

// classifyRule matches when every needle occurs in the lowercased input.
type classifyRule struct {
	category Category
	needles  []string
}

// Rules are evaluated top to bottom, most specific first, so a CUDA
// out-of-memory message never falls through to the bare timeout rule. This
// is a heuristic over uncontrolled process output; collaborators that can
// tag their own failures should construct errors with NewError instead.
var classifyRules = []classifyRule{
	{CategoryGenerationBlocked, []string{"cuda", "out of memory"}},
	{CategoryGenerationBlocked, []string{"out of memory"}},
	{CategoryGenerationBlocked, []string{"content policy"}},
	{CategoryGenerationBlocked, []string{"safety", "blocked"}},
	{CategoryGenerationBlocked, []string{"nsfw"}},
	{CategoryTokenOverflow, []string{"token", "limit"}},
	{CategoryTokenOverflow, []string{"token", "budget"}},
	{CategoryTokenOverflow, []string{"context length"}},
	{CategoryTokenOverflow, []string{"prompt too long"}},
	{CategoryAPIQuota, []string{"quota"}},
	{CategoryAPIQuota, []string{"insufficient credit"}},
	{CategoryAPIQuota, []string{"billing"}},
	{CategoryAPIRateLimit, []string{"rate limit"}},
	{CategoryAPIRateLimit, []string{"too many requests"}},
	{CategoryAPIRateLimit, []string{"429"}},
	{CategoryWorkflowInvalid, []string{"node_errors"}},
	{CategoryWorkflowInvalid, []string{"unknown node"}},
	{CategoryWorkflowInvalid, []string{"missing node type"}},
	{CategoryWorkflowInvalid, []string{"workflow", "invalid"}},
	{CategoryMappingMissing, []string{"mapping", "missing"}},
	{CategoryMappingMissing, []string{"no mapping"}},
	{CategoryMappingMissing, []string{"unmapped"}},
	{CategoryImageUploadFailed, []string{"image upload"}},
	{CategoryImageUploadFailed, []string{"upload", "image"}},
	{CategoryAPITimeout, []string{"timed out"}},
	{CategoryAPITimeout, []string{"timeout"}},
	{CategoryAPITimeout, []string{"deadline exceeded"}},
	{CategoryAPIUnavailable, []string{"connection refused"}},
	{CategoryAPIUnavailable, []string{"connection reset"}},
	{CategoryAPIUnavailable, []string{"no route to host"}},
	{CategoryAPIUnavailable, []string{"service unavailable"}},
	{CategoryAPIUnavailable, []string{"unavailable"}},
	{CategoryAPIUnavailable, []string{"502"}},
	{CategoryAPIUnavailable, []string{"503"}},
	{CategoryValidationFailed, []string{"validation failed"}},
	{CategoryValidationFailed, []string{"validation error"}},
	{CategoryValidationFailed, []string{"invalid input"}},
	{CategoryValidationFailed, []string{"invalid request"}},
}

// Classify maps raw failure text to a category. Matching is case-insensitive
// and returns CategoryUnknown when no rule applies.
func Classify(message string) Category {
	lowered := strings.ToLower(message)
	if strings.TrimSpace(lowered) == "" {
		return CategoryUnknown
	}
	for _, rule := range classifyRules {
		if matchesAll(lowered, rule.needles) {
			return rule.category
		}
	}
	return CategoryUnknown
}

func matchesAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
