package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"slate/internal/config"
	"slate/internal/logging"
	"slate/internal/media/ffmpeg"
	"slate/internal/media/ffprobe"
	"slate/internal/pipeline"
)

// Temporal modes accepted on run requests.
const (
	ModeOn       = "on"
	ModeOff      = "off"
	ModeAuto     = "auto"
	ModeAdaptive = "adaptive"
)

type interpolateFunc func(ctx context.Context, binary, input, output string, targetFPS, crf int, temporalMode string) error

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Enhancer is the post-processing step body.
type Enhancer struct {
	cfg         *config.Config
	logger      *slog.Logger
	interpolate interpolateFunc
	probe       probeFunc
}

// NewEnhancer constructs the post-processing step body.
func NewEnhancer(cfg *config.Config, logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enhancer{
		cfg:         cfg,
		logger:      logger.With(logging.String(logging.FieldComponent, "enhance")),
		interpolate: ffmpeg.Interpolate,
		probe:       ffprobe.Inspect,
	}
}

func (e *Enhancer) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, e.logger)

	if !e.cfg.Enhance.Enabled {
		return pipeline.Skipped(pipeline.KeyEnhanceSkipped, "post-processing disabled")
	}
	mode := resolveRequestedMode(rc.String(pipeline.KeyTemporalMode), e.cfg.Enhance.TemporalMode)
	if mode == ModeOff {
		return pipeline.Skipped(pipeline.KeyEnhanceSkipped, "temporal mode off")
	}
	videoPath := strings.TrimSpace(rc.String(pipeline.KeyVideoPath))
	if videoPath == "" {
		return pipeline.FailedMessage("no video available to enhance")
	}
	targetFPS := e.cfg.Enhance.TargetFPS
	if targetFPS <= 0 {
		targetFPS = 30
	}

	if mode == ModeAuto {
		resolved, reason := e.resolveAuto(ctx, videoPath, targetFPS)
		if resolved == ModeOff {
			logger.Info("post-processing skipped", logging.String("reason", reason))
			return pipeline.Skipped(pipeline.KeyEnhanceSkipped, reason)
		}
		mode = resolved
	}

	output := enhancedPath(videoPath)
	if err := e.interpolate(ctx, e.cfg.FFmpegBinary(), videoPath, output, targetFPS, e.cfg.Enhance.CRF, mode); err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.Cancelled()
		}
		return pipeline.Failed(err)
	}

	applied := fmt.Sprintf("interpolation to %d fps (%s)", targetFPS, mode)
	logger.Info("post-processing complete",
		logging.String(logging.FieldPath, output),
		logging.String("applied", applied))
	return pipeline.Succeeded(map[string]any{
		pipeline.KeyVideoPath:      output,
		pipeline.KeyEnhanceApplied: applied,
		pipeline.KeyTemporalMode:   mode,
	})
}

// resolveAuto probes the source and skips interpolation when the clip
// already plays at or above the target rate. A probe failure falls back
// to adaptive interpolation rather than blocking the run.
func (e *Enhancer) resolveAuto(ctx context.Context, videoPath string, targetFPS int) (mode, reason string) {
	result, err := e.probe(ctx, e.cfg.FFprobeBinary(), videoPath)
	if err != nil {
		return ModeAdaptive, ""
	}
	if fps := result.FPS(); fps >= float64(targetFPS) {
		return ModeOff, fmt.Sprintf("source already at %.4g fps", fps)
	}
	return ModeAdaptive, ""
}

func resolveRequestedMode(requested, configured string) string {
	if mode := strings.ToLower(strings.TrimSpace(requested)); mode != "" {
		return mode
	}
	if mode := strings.ToLower(strings.TrimSpace(configured)); mode != "" {
		return mode
	}
	return ModeAuto
}

// enhancedPath derives the output filename: clip.mp4 becomes
// clip.enhanced.mp4, leaving the original in place.
func enhancedPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".enhanced" + ext
}
