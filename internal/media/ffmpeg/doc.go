// Package ffmpeg wraps the ffmpeg invocations the pipeline performs:
// frame-interpolating re-encodes for the enhance step, lossless concat for
// narrative stitching, and frame sampling for QA. Commands run through
// exec.CommandContext so cancellation kills the encoder, and stderr is
// folded into returned errors for classification upstream.
package ffmpeg
