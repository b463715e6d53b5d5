package deps

import "slate/internal/config"

// Requirements lists the external tools slate shells out to. ffmpeg and
// ffprobe are hard requirements: enhancement, stitching, and QA all run
// through them.
func Requirements(cfg *config.Config) []Requirement {
	ffmpeg := "ffmpeg"
	ffprobe := "ffprobe"
	if cfg != nil {
		ffmpeg = cfg.FFmpegBinary()
		ffprobe = cfg.FFprobeBinary()
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Used for frame interpolation and scene stitching",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Used for media inspection during QA",
		},
	}
}

// Check evaluates slate's tool requirements against the current PATH.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}
