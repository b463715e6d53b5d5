// Package enhance implements the optional post-processing step.
//
// The enhancer interpolates the generated clip up to the configured
// frame rate with ffmpeg's minterpolate filter. Temporal mode controls
// the filter: off skips the step, on uses frame blending, adaptive uses
// motion-compensated interpolation, and auto probes the source first
// and skips clips already at the target rate.
//
// The pipeline wires this step non-critical: a failed enhancement
// leaves the original video path in the run context and downgrades to
// a warning. On success the enhanced file replaces the video path so
// every later step reads the freshest artifact.
package enhance
