// Package recovery owns error classification and retry policy for pipeline
// runs.
//
// Raw failure text from external processes is folded into a small set of
// categories that drive control flow (retry, user action, abort), while a
// larger code taxonomy supplies user-facing guidance, retry delays, and
// severity for individual failure modes. PipelineError is the repo-wide
// classified error type; collaborators that know their failure mode construct
// it directly, and ToPipelineError classifies everything else.
package recovery
