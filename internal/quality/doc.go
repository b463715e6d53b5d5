// Package quality implements the QA step.
//
// Two layers run against the freshest video artifact: mechanical
// stream inspection through ffprobe (stream presence, frame rate,
// duration drift against the requested frame count) and, when an LLM
// is configured and scene material is available, an alignment score
// comparing the run's prompt with the observed scene prompts.
//
// Verdicts follow the scoring thresholds: strong alignment passes,
// acceptable alignment warns, anything below the pass threshold or any
// mechanical issue fails. The verdict and score are merged into the
// run context and also written as qa.json next to the video; the step
// itself stays soft, so a failing verdict never aborts the pipeline.
package quality
