// Package script feeds the narrative pipeline. The loader parses a
// scene-per-line script file into ordered scene prompts, expanding a
// single-line concept through the LLM when one is configured. The
// stitcher concatenates the rendered scene clips into the final video.
package script
