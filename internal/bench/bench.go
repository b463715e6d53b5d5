package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"slate/internal/comfy"
	"slate/internal/config"
	"slate/internal/fileutil"
	"slate/internal/logging"
	"slate/internal/pipeline"
)

// StatsFile is the benchmark artifact written into the run directory.
const StatsFile = "bench.json"

// StatsProvider reports GPU memory figures. The ComfyUI client satisfies
// this; fastvideo runs simply go without VRAM numbers.
type StatsProvider interface {
	SystemStats(ctx context.Context) (comfy.SystemStats, error)
}

// Stats is the recorded benchmark payload.
type Stats struct {
	Backend           string    `json:"backend"`
	Frames            int       `json:"frames"`
	GenerationSeconds float64   `json:"generationSeconds"`
	FramesPerSecond   float64   `json:"framesPerSecond"`
	VRAM              *VRAM     `json:"vram,omitempty"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// VRAM summarizes device memory across the sampling window.
type VRAM struct {
	Device        string `json:"device"`
	TotalBytes    uint64 `json:"totalBytes"`
	PeakUsedBytes uint64 `json:"peakUsedBytes"`
	Samples       int    `json:"samples"`
}

// Collector implements the benchmark pipeline step.
type Collector struct {
	cfg    *config.Config
	runDir string
	logger *slog.Logger
	stats  StatsProvider
	pause  func(context.Context, time.Duration) error
}

// NewCollector constructs the benchmark step body with a live ComfyUI
// stats client.
func NewCollector(cfg *config.Config, runDir string, logger *slog.Logger) *Collector {
	client := comfy.NewClient(comfy.Config{
		BaseURL:        cfg.Comfy.BaseURL,
		ClientID:       cfg.Comfy.ClientID,
		TimeoutSeconds: cfg.Comfy.RequestTimeout,
	})
	return NewCollectorWithDependencies(cfg, runDir, logger, client)
}

// NewCollectorWithDependencies allows injecting the stats provider (used in tests).
func NewCollectorWithDependencies(cfg *config.Config, runDir string, logger *slog.Logger, stats StatsProvider) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{
		cfg:    cfg,
		runDir: runDir,
		logger: logger.With(logging.String(logging.FieldComponent, "bench")),
		stats:  stats,
		pause:  sleepContext,
	}
}

// Execute records throughput from the generation step and samples GPU
// memory, then writes bench.json into the run directory.
func (c *Collector) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	if !c.cfg.Bench.Enabled {
		return pipeline.Skipped(pipeline.KeyBenchSkipped, "benchmarking disabled")
	}
	seconds := rc.Float64(pipeline.KeyGenerationSeconds)
	if seconds <= 0 {
		return pipeline.Skipped(pipeline.KeyBenchSkipped, "no generation timing recorded")
	}

	stats := Stats{
		Backend:           c.cfg.Generation.Backend,
		Frames:            rc.Int(pipeline.KeyFrameCount),
		GenerationSeconds: seconds,
		RecordedAt:        time.Now().UTC(),
	}
	if stats.Frames > 0 {
		stats.FramesPerSecond = float64(stats.Frames) / seconds
	}

	var warning string
	vram, err := c.sampleVRAM(ctx)
	switch {
	case err != nil:
		warning = fmt.Sprintf("vram sampling unavailable: %v", err)
		c.logger.Warn("vram sampling unavailable", logging.Error(err))
	case vram != nil:
		stats.VRAM = vram
	}

	path := filepath.Join(c.runDir, StatsFile)
	if err := writeStats(path, stats); err != nil {
		return pipeline.Failed(err)
	}

	c.logger.Info("benchmark recorded",
		logging.Float64("frames_per_second", stats.FramesPerSecond),
		logging.String(logging.FieldPath, path))
	updates := map[string]any{pipeline.KeyBenchPath: path}
	if warning != "" {
		return pipeline.Warn(updates, warning)
	}
	return pipeline.Succeeded(updates)
}

// sampleVRAM polls system stats cfg.Bench.Runs times and keeps the peak
// used figure of the primary GPU. A nil result with nil error means no
// provider is wired.
func (c *Collector) sampleVRAM(ctx context.Context) (*VRAM, error) {
	if c.stats == nil {
		return nil, nil
	}
	runs := c.cfg.Bench.Runs
	if runs < 1 {
		runs = 1
	}

	var out *VRAM
	for i := 0; i < runs; i++ {
		if i > 0 {
			if err := c.pause(ctx, sampleSpacing); err != nil {
				return out, err
			}
		}
		snapshot, err := c.stats.SystemStats(ctx)
		if err != nil {
			if out != nil {
				// Keep what we have; a mid-window outage should not
				// discard earlier samples.
				c.logger.Warn("stats sample failed", logging.Error(err))
				return out, nil
			}
			return nil, err
		}
		device, ok := snapshot.PrimaryDevice()
		if !ok {
			return out, nil
		}
		used := device.VRAMTotal - device.VRAMFree
		if out == nil {
			out = &VRAM{Device: device.Name, TotalBytes: device.VRAMTotal}
		}
		if used > out.PeakUsedBytes {
			out.PeakUsedBytes = used
		}
		out.Samples++
	}
	return out, nil
}

const sampleSpacing = 500 * time.Millisecond

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func writeStats(path string, stats Stats) error {
	payload, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encode benchmark stats: %w", err)
	}
	if err := fileutil.WriteAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write benchmark stats: %w", err)
	}
	return nil
}
