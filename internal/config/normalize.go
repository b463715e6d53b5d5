package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeComfy()
	c.normalizeFastVideo()
	c.normalizeGeneration()
	c.normalizeEnhance()
	c.normalizeLLM()
	c.normalizeLogging()
	if c.Preflight.MinFreeDiskGB < 0 {
		c.Preflight.MinFreeDiskGB = 0
	}
	if c.Preflight.MinFreeVRAMMB < 0 {
		c.Preflight.MinFreeVRAMMB = 0
	}
	if c.Runner.StatusPollInterval <= 0 {
		c.Runner.StatusPollInterval = defaultStatusPollInterval
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RunsDir, err = expandPath(c.Paths.RunsDir); err != nil {
		return fmt.Errorf("paths.runs_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkflowDir) == "" {
		c.Paths.WorkflowDir = defaultWorkflowDir
	}
	if c.Paths.WorkflowDir, err = expandPath(c.Paths.WorkflowDir); err != nil {
		return fmt.Errorf("paths.workflow_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeComfy() {
	if value, ok := os.LookupEnv("SLATE_COMFY_URL"); ok && strings.TrimSpace(value) != "" {
		c.Comfy.BaseURL = value
	}
	c.Comfy.BaseURL = strings.TrimRight(strings.TrimSpace(c.Comfy.BaseURL), "/")
	if c.Comfy.BaseURL == "" {
		c.Comfy.BaseURL = defaultComfyBaseURL
	}
	c.Comfy.ClientID = strings.TrimSpace(c.Comfy.ClientID)
	if c.Comfy.RequestTimeout <= 0 {
		c.Comfy.RequestTimeout = defaultComfyTimeout
	}
	if c.Comfy.PollInterval <= 0 {
		c.Comfy.PollInterval = defaultComfyPollInterval
	}
	if c.Comfy.GenerationTimeout <= 0 {
		c.Comfy.GenerationTimeout = defaultGenerationTimeout
	}
}

func (c *Config) normalizeFastVideo() {
	if value, ok := os.LookupEnv("SLATE_FASTVIDEO_URL"); ok && strings.TrimSpace(value) != "" {
		c.FastVideo.BaseURL = value
	}
	c.FastVideo.BaseURL = strings.TrimRight(strings.TrimSpace(c.FastVideo.BaseURL), "/")
	if c.FastVideo.BaseURL == "" {
		c.FastVideo.BaseURL = defaultFastVideoBaseURL
	}
	if c.FastVideo.RequestTimeout <= 0 {
		c.FastVideo.RequestTimeout = defaultFastVideoTimeout
	}
	if c.FastVideo.GenerationTimeout <= 0 {
		c.FastVideo.GenerationTimeout = defaultGenerationTimeout
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Backend = strings.ToLower(strings.TrimSpace(c.Generation.Backend))
	if c.Generation.Backend == "" {
		c.Generation.Backend = defaultBackend
	}
	if c.Generation.TokenBudget < 0 {
		c.Generation.TokenBudget = 0
	}
	if c.Generation.FrameCount <= 0 {
		c.Generation.FrameCount = defaultFrameCount
	}
	if c.Generation.FPS <= 0 {
		c.Generation.FPS = defaultFPS
	}
	if c.Generation.Width <= 0 {
		c.Generation.Width = defaultWidth
	}
	if c.Generation.Height <= 0 {
		c.Generation.Height = defaultHeight
	}
}

func (c *Config) normalizeEnhance() {
	c.Enhance.TemporalMode = strings.ToLower(strings.TrimSpace(c.Enhance.TemporalMode))
	if c.Enhance.TemporalMode == "" {
		c.Enhance.TemporalMode = defaultTemporalMode
	}
	if c.Enhance.TargetFPS <= 0 {
		c.Enhance.TargetFPS = defaultTargetFPS
	}
	if c.Enhance.CRF <= 0 {
		c.Enhance.CRF = defaultCRF
	}
}

func (c *Config) normalizeLLM() {
	if value, ok := os.LookupEnv("SLATE_LLM_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = value
	} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = value
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
