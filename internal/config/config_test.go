package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slate/internal/config"
)

func TestLoadDefaultConfigUsesEnvLLMKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRuns := filepath.Join(tempHome, ".local", "share", "slate", "runs")
	if cfg.Paths.RunsDir != wantRuns {
		t.Fatalf("unexpected runs dir: got %q want %q", cfg.Paths.RunsDir, wantRuns)
	}
	if cfg.Paths.LedgerPath != filepath.Join(tempHome, ".local", "share", "slate", "slate.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Generation.Backend != "comfy" {
		t.Fatalf("unexpected backend: %q", cfg.Generation.Backend)
	}
	if cfg.FastVideo.Enabled {
		t.Fatal("expected fastvideo disabled by default")
	}
	if !cfg.Enhance.Enabled || cfg.Enhance.TemporalMode != "auto" {
		t.Fatalf("unexpected enhance defaults: %+v", cfg.Enhance)
	}
	if cfg.Quality.SimilarityPass != 0.75 || cfg.Quality.SimilarityStrong != 0.85 {
		t.Fatalf("unexpected quality thresholds: %+v", cfg.Quality)
	}
	if cfg.Generation.TokenBudget != 600 {
		t.Fatalf("unexpected token budget: %d", cfg.Generation.TokenBudget)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.RunsDir, cfg.Paths.LogDir, cfg.Paths.WorkflowDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "slate.toml")

	type payload struct {
		Generation struct {
			TokenBudget int `toml:"token_budget"`
			FrameCount  int `toml:"frame_count"`
		} `toml:"generation"`
		Quality struct {
			SimilarityPass   float64 `toml:"similarity_pass"`
			SimilarityStrong float64 `toml:"similarity_strong"`
		} `toml:"quality"`
		Flags map[string]string `toml:"flags"`
	}
	custom := payload{}
	custom.Generation.TokenBudget = 900
	custom.Generation.FrameCount = 121
	custom.Quality.SimilarityPass = 0.8
	custom.Quality.SimilarityStrong = 0.9
	custom.Flags = map[string]string{"token-guard": "block"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Generation.TokenBudget != 900 {
		t.Fatalf("expected token budget 900, got %d", cfg.Generation.TokenBudget)
	}
	if cfg.Generation.FrameCount != 121 {
		t.Fatalf("expected frame count 121, got %d", cfg.Generation.FrameCount)
	}
	if cfg.Quality.SimilarityPass != 0.8 || cfg.Quality.SimilarityStrong != 0.9 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Quality)
	}
	if cfg.Flags["token-guard"] != "block" {
		t.Fatalf("unexpected flags: %v", cfg.Flags)
	}
	if cfg.Generation.Backend != "comfy" {
		t.Fatalf("expected untouched default backend, got %q", cfg.Generation.Backend)
	}
}

func TestSlateConfigEnvResolvesPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "slate.toml")

	type payload struct {
		Generation struct {
			TokenBudget int `toml:"token_budget"`
		} `toml:"generation"`
	}
	custom := payload{}
	custom.Generation.TokenBudget = 1234
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("SLATE_CONFIG", configPath)
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Generation.TokenBudget != 1234 {
		t.Fatalf("expected token budget 1234, got %d", cfg.Generation.TokenBudget)
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "slate.toml")

	type payload struct {
		Comfy struct {
			BaseURL string `toml:"base_url"`
		} `toml:"comfy"`
		LLM struct {
			APIKey string `toml:"api_key"`
		} `toml:"llm"`
	}
	custom := payload{}
	custom.Comfy.BaseURL = "http://file-host:8188"
	custom.LLM.APIKey = "file-key"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("SLATE_COMFY_URL", "http://env-host:8188/")
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Comfy.BaseURL != "http://env-host:8188" {
		t.Errorf("expected comfy url from env, got %q", cfg.Comfy.BaseURL)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestSlateLLMKeyBeatsOpenRouterKey(t *testing.T) {
	t.Setenv("SLATE_LLM_API_KEY", "slate-key")
	t.Setenv("OPENROUTER_API_KEY", "openrouter-key")
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "slate-key" {
		t.Fatalf("expected SLATE_LLM_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[generation]") {
		t.Fatalf("sample config missing generation section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Generation.Backend != "comfy" {
		t.Fatalf("sample backend = %q", cfg.Generation.Backend)
	}
	if cfg.Flags["token-guard"] != "warn" {
		t.Fatalf("sample flags = %v", cfg.Flags)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Generation.Backend = "sora"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg = config.Default()
	cfg.Generation.Backend = "fastvideo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for fastvideo backend while disabled")
	}

	cfg = config.Default()
	cfg.Generation.Width = 833
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-multiple-of-8 width")
	}

	cfg = config.Default()
	cfg.Quality.SimilarityStrong = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when strong threshold below pass threshold")
	}

	cfg = config.Default()
	cfg.Enhance.TemporalMode = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown temporal mode")
	}

	cfg = config.Default()
	cfg.Comfy.GenerationTimeout = cfg.Comfy.PollInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when generation timeout <= poll interval")
	}

	cfg = config.Default()
	cfg.Flags = map[string]string{"token-guard": "sometimes"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid flag state")
	}

	cfg = config.Default()
	cfg.Bench.Runs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero bench runs")
	}
}
