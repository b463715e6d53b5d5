package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	RunsDir     string `toml:"runs_dir"`
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	WorkflowDir string `toml:"workflow_dir"`
	LedgerPath  string `toml:"ledger_path"`
}

// Comfy contains connection settings for a ComfyUI server.
type Comfy struct {
	BaseURL           string `toml:"base_url"`
	ClientID          string `toml:"client_id"`
	RequestTimeout    int    `toml:"request_timeout"`
	PollInterval      int    `toml:"poll_interval"`
	GenerationTimeout int    `toml:"generation_timeout"`
}

// FastVideo contains connection settings for a FastVideo server.
type FastVideo struct {
	Enabled           bool   `toml:"enabled"`
	BaseURL           string `toml:"base_url"`
	RequestTimeout    int    `toml:"request_timeout"`
	GenerationTimeout int    `toml:"generation_timeout"`
}

// Generation contains settings for the text-to-video generation step.
type Generation struct {
	Backend        string `toml:"backend"`
	TokenBudget    int    `toml:"token_budget"`
	FrameCount     int    `toml:"frame_count"`
	FPS            int    `toml:"fps"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	NegativePrompt string `toml:"negative_prompt"`
}

// Enhance contains settings for ffmpeg post-processing.
type Enhance struct {
	Enabled      bool   `toml:"enabled"`
	TemporalMode string `toml:"temporal_mode"`
	TargetFPS    int    `toml:"target_fps"`
	CRF          int    `toml:"crf"`
}

// Quality contains settings and thresholds for the QA scoring step.
type Quality struct {
	Enabled                  bool    `toml:"enabled"`
	SimilarityPass           float64 `toml:"similarity_pass"`
	SimilarityStrong         float64 `toml:"similarity_strong"`
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	FrameSamples             int     `toml:"frame_samples"`
}

// Bench contains settings for the generation benchmark step.
type Bench struct {
	Enabled bool `toml:"enabled"`
	Runs    int  `toml:"runs"`
}

// Preflight contains the resource floors enforced before a run starts.
type Preflight struct {
	MinFreeDiskGB int `toml:"min_free_disk_gb"`
	MinFreeVRAMMB int `toml:"min_free_vram_mb"`
}

// LLM contains connection settings for the vision/LLM scoring service.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Script contains settings for narrative script expansion.
type Script struct {
	MaxScenes    int `toml:"max_scenes"`
	SceneSeconds int `toml:"scene_seconds"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunComplete    bool   `toml:"run_complete"`
	RunFailed      bool   `toml:"run_failed"`
	Warnings       bool   `toml:"warnings"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Runner contains run orchestration timing.
type Runner struct {
	StatusPollInterval int `toml:"status_poll_interval"`
}

// Config encapsulates all configuration values for slate.
//
// Configuration sections by subsystem:
//   - Paths: run artifact, output, log, and workflow template directories
//   - Comfy: ComfyUI server connection and polling
//   - FastVideo: optional FastVideo server connection
//   - Generation: backend selection, prompt budget, and clip geometry
//   - Enhance: ffmpeg interpolation/encode settings
//   - Quality: QA scoring thresholds
//   - Bench: benchmark step settings
//   - Preflight: disk and VRAM floors checked before a run
//   - LLM: vision/LLM scoring service connection
//   - Script: narrative script expansion limits
//   - Flags: three-state guard policies
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//   - Runner: orchestration timing
type Config struct {
	Paths         Paths             `toml:"paths"`
	Comfy         Comfy             `toml:"comfy"`
	FastVideo     FastVideo         `toml:"fastvideo"`
	Generation    Generation        `toml:"generation"`
	Enhance       Enhance           `toml:"enhance"`
	Quality       Quality           `toml:"quality"`
	Bench         Bench             `toml:"bench"`
	Preflight     Preflight         `toml:"preflight"`
	LLM           LLM               `toml:"llm"`
	Script        Script            `toml:"script"`
	Flags         map[string]string `toml:"flags"`
	Notifications Notifications     `toml:"notifications"`
	Logging       Logging           `toml:"logging"`
	Runner        Runner            `toml:"runner"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	// Secrets live in .env files, not in the TOML. Load them first so the
	// environment fallbacks in normalize() see them. Already-set variables
	// win, and a missing file is not an error.
	loadDotenv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotenv merges .env files from the working directory and the config
// file's directory into the process environment.
func loadDotenv(configPath string) {
	_ = godotenv.Load()
	if dir := filepath.Dir(configPath); dir != "" && dir != "." {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

// resolveConfigPath picks the config file location: an explicit path wins,
// then $SLATE_CONFIG, then the XDG default, then a project-local slate.toml.
func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SLATE_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. OutputDir is
// created on a best-effort basis so runs can start when external storage is
// temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RunsDir, c.Paths.LogDir, c.Paths.WorkflowDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	if dir := filepath.Dir(c.Paths.LedgerPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for post-processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media checks.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM connection settings in their normalized form.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings used by QA scoring and script
// expansion.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
