package config

import (
	"errors"
	"fmt"
	"strings"

	"slate/internal/flags"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateEnhance(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateBench(); err != nil {
		return err
	}
	if err := c.validateScript(); err != nil {
		return err
	}
	if err := c.validateFlags(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGeneration() error {
	switch c.Generation.Backend {
	case "comfy", "fastvideo":
	default:
		return fmt.Errorf("generation.backend must be comfy or fastvideo, got %q", c.Generation.Backend)
	}
	if c.Generation.Backend == "fastvideo" && !c.FastVideo.Enabled {
		return errors.New("generation.backend is fastvideo but fastvideo.enabled is false")
	}
	// Latent encoding requires dimensions divisible by 8.
	if c.Generation.Width%8 != 0 {
		return fmt.Errorf("generation.width must be a multiple of 8, got %d", c.Generation.Width)
	}
	if c.Generation.Height%8 != 0 {
		return fmt.Errorf("generation.height must be a multiple of 8, got %d", c.Generation.Height)
	}
	return nil
}

func (c *Config) validateBackends() error {
	if err := ensurePositiveMap(map[string]int{
		"comfy.request_timeout":        c.Comfy.RequestTimeout,
		"comfy.poll_interval":          c.Comfy.PollInterval,
		"comfy.generation_timeout":     c.Comfy.GenerationTimeout,
		"fastvideo.request_timeout":    c.FastVideo.RequestTimeout,
		"fastvideo.generation_timeout": c.FastVideo.GenerationTimeout,
		"llm.timeout_seconds":          c.LLM.TimeoutSeconds,
		"runner.status_poll_interval":  c.Runner.StatusPollInterval,
	}); err != nil {
		return err
	}
	if c.Comfy.GenerationTimeout <= c.Comfy.PollInterval {
		return errors.New("comfy.generation_timeout must be greater than comfy.poll_interval")
	}
	return nil
}

func (c *Config) validateEnhance() error {
	if !c.Enhance.Enabled {
		return nil
	}
	switch c.Enhance.TemporalMode {
	case "on", "off", "auto", "adaptive":
	default:
		return fmt.Errorf("enhance.temporal_mode must be on, off, auto, or adaptive, got %q", c.Enhance.TemporalMode)
	}
	if c.Enhance.TargetFPS <= 0 {
		return errors.New("enhance.target_fps must be positive")
	}
	if c.Enhance.CRF < 0 || c.Enhance.CRF > 51 {
		return errors.New("enhance.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if !c.Quality.Enabled {
		return nil
	}
	if c.Quality.SimilarityPass < 0 || c.Quality.SimilarityPass > 1 {
		return errors.New("quality.similarity_pass must be between 0 and 1")
	}
	if c.Quality.SimilarityStrong < 0 || c.Quality.SimilarityStrong > 1 {
		return errors.New("quality.similarity_strong must be between 0 and 1")
	}
	if c.Quality.SimilarityStrong < c.Quality.SimilarityPass {
		return errors.New("quality.similarity_strong must be >= quality.similarity_pass")
	}
	if c.Quality.DurationToleranceSeconds < 0 {
		return errors.New("quality.duration_tolerance_seconds must be >= 0")
	}
	if c.Quality.FrameSamples < 1 {
		return errors.New("quality.frame_samples must be >= 1")
	}
	return nil
}

func (c *Config) validateBench() error {
	if c.Bench.Enabled && c.Bench.Runs < 1 {
		return errors.New("bench.runs must be >= 1 when bench.enabled is true")
	}
	return nil
}

func (c *Config) validateScript() error {
	if c.Script.MaxScenes < 1 {
		return errors.New("script.max_scenes must be >= 1")
	}
	if c.Script.SceneSeconds < 1 {
		return errors.New("script.scene_seconds must be >= 1")
	}
	return nil
}

func (c *Config) validateFlags() error {
	for name, raw := range c.Flags {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := flags.ParseState(raw); err != nil {
			return fmt.Errorf("flags.%s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
