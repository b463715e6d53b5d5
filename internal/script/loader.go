package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"slate/internal/config"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/pipeline"
	"slate/internal/recovery"
)

// Expander turns a one-line concept into scene prompts.
type Expander interface {
	Configured() bool
	ExpandScript(ctx context.Context, concept string, maxScenes int) ([]string, error)
}

// Script is a parsed narrative script.
type Script struct {
	Title  string
	Scenes []string
}

// Loader implements the script-loading pipeline step.
type Loader struct {
	cfg      *config.Config
	path     string
	logger   *slog.Logger
	expander Expander
}

// NewLoader constructs the loader with a live LLM expander.
func NewLoader(cfg *config.Config, path string, logger *slog.Logger) *Loader {
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return NewLoaderWithDependencies(cfg, path, logger, client)
}

// NewLoaderWithDependencies allows injecting the expander (used in tests).
func NewLoaderWithDependencies(cfg *config.Config, path string, logger *slog.Logger, expander Expander) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{
		cfg:      cfg,
		path:     path,
		logger:   logger.With(logging.String(logging.FieldComponent, "script")),
		expander: expander,
	}
}

// Execute parses the script file and merges the scene prompts into the
// run context. A single non-comment line is treated as a concept and
// expanded through the LLM when one is configured.
func (l *Loader) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, l.logger)

	parsed, err := Load(l.path)
	if err != nil {
		return pipeline.Failed(err)
	}

	scenes := parsed.Scenes
	var warning string
	if len(scenes) == 1 && l.expander != nil && l.expander.Configured() {
		expanded, err := l.expander.ExpandScript(ctx, scenes[0], l.cfg.Script.MaxScenes)
		switch {
		case err != nil:
			// The concept itself still renders as a single scene.
			warning = fmt.Sprintf("script expansion failed: %v", err)
			logger.Warn("script expansion failed", logging.Error(err))
		default:
			logger.Info("concept expanded",
				logging.Int("scenes", len(expanded)))
			scenes = expanded
		}
	}
	if max := l.cfg.Script.MaxScenes; max > 0 && len(scenes) > max {
		warning = fmt.Sprintf("script truncated to %d scenes", max)
		scenes = scenes[:max]
	}

	logger.Info("script loaded",
		logging.String(logging.FieldPath, l.path),
		logging.String("title", parsed.Title),
		logging.Int("scenes", len(scenes)))

	updates := map[string]any{
		pipeline.KeyScenePrompts: scenes,
		pipeline.KeyPrompt:       overallPrompt(parsed.Title, scenes),
	}
	if parsed.Title != "" {
		updates[pipeline.KeyScriptTitle] = parsed.Title
	}
	if warning != "" {
		return pipeline.Warn(updates, warning)
	}
	return pipeline.Succeeded(updates)
}

// Load reads and parses a script file. The first comment line names the
// script; every other non-blank, non-comment line is one scene prompt.
func Load(path string) (Script, error) {
	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Script{}, recovery.Errorf(recovery.CategoryValidationFailed,
			"script not found: %s", path).WithDetail("path", path)
	}
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	parsed := Parse(string(payload))
	if len(parsed.Scenes) == 0 {
		return Script{}, recovery.Errorf(recovery.CategoryValidationFailed,
			"script has no scenes: %s", path).WithDetail("path", path)
	}
	return parsed, nil
}

// Parse splits script text into a title and ordered scene prompts.
func Parse(text string) Script {
	var parsed Script
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if parsed.Title == "" {
				parsed.Title = strings.TrimSpace(strings.TrimLeft(line, "# "))
			}
			continue
		}
		parsed.Scenes = append(parsed.Scenes, line)
	}
	return parsed
}

// overallPrompt is the reference text the QA scorer compares scenes
// against.
func overallPrompt(title string, scenes []string) string {
	if title != "" {
		return title
	}
	if len(scenes) == 1 {
		return scenes[0]
	}
	return strings.Join(scenes, "; ")
}
