package script

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/media/ffmpeg"
	"slate/internal/pipeline"
	"slate/internal/recovery"
)

// StitchedName is the concatenated narrative video inside the run
// directory.
const StitchedName = "narrative.mp4"

type concatFunc func(ctx context.Context, binary string, inputs []string, output string) error

// Stitcher implements the stitch pipeline step. It joins the per-scene
// clips into one video and publishes it as the run's video artifact.
type Stitcher struct {
	cfg    *config.Config
	runDir string
	logger *slog.Logger
	concat concatFunc
}

// NewStitcher constructs the stitch step body.
func NewStitcher(cfg *config.Config, runDir string, logger *slog.Logger) *Stitcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stitcher{
		cfg:    cfg,
		runDir: runDir,
		logger: logger.With(logging.String(logging.FieldComponent, "script")),
		concat: ffmpeg.Concat,
	}
}

// Execute concatenates the scene clips accumulated by the generation
// step. A single-scene run skips the concat and promotes the clip
// directly.
func (s *Stitcher) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, s.logger)

	clips := rc.StringSlice(pipeline.KeyScenePaths)
	if len(clips) == 0 {
		return pipeline.Failed(recovery.NewError(recovery.CategoryValidationFailed,
			"no scene clips to stitch"))
	}
	if len(clips) == 1 {
		logger.Info("single scene, no stitch needed",
			logging.String(logging.FieldPath, clips[0]))
		return pipeline.Succeeded(map[string]any{pipeline.KeyVideoPath: clips[0]})
	}

	output := filepath.Join(s.runDir, StitchedName)
	if err := s.concat(ctx, s.cfg.FFmpegBinary(), clips, output); err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.Cancelled()
		}
		return pipeline.Failed(err)
	}

	logger.Info("scenes stitched",
		logging.Int("clips", len(clips)),
		logging.String(logging.FieldPath, output))
	return pipeline.Succeeded(map[string]any{pipeline.KeyVideoPath: output})
}
