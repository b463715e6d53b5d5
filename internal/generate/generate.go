package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"slate/internal/comfy"
	"slate/internal/config"
	"slate/internal/fastvideo"
	"slate/internal/flags"
	"slate/internal/guard"
	"slate/internal/logging"
	"slate/internal/pipeline"
	"slate/internal/recovery"
	"slate/internal/workflow"
)

// Backend names accepted in configuration.
const (
	BackendComfy     = "comfy"
	BackendFastVideo = "fastvideo"
)

// ComfyService is the slice of the ComfyUI client the generator drives.
type ComfyService interface {
	SubmitPrompt(ctx context.Context, workflow any) (string, error)
}

// FastVideoService is the slice of the FastVideo client the generator drives.
type FastVideoService interface {
	Generate(ctx context.Context, request fastvideo.GenerateRequest) (fastvideo.GenerateResponse, error)
}

// Generator is the generation step body. Production runs render one
// clip from the prepared workflow graph; narrative runs render one
// clip per parsed scene through the FastVideo sidecar.
type Generator struct {
	cfg    *config.Config
	flags  *flags.Store
	logger *slog.Logger
	comfy  ComfyService
	fast   FastVideoService

	pollInterval time.Duration
	timeout      time.Duration
}

// NewGenerator constructs the generation step body with live backend clients.
func NewGenerator(cfg *config.Config, store *flags.Store, logger *slog.Logger) *Generator {
	comfyClient := comfy.NewClient(comfy.Config{
		BaseURL:        cfg.Comfy.BaseURL,
		ClientID:       cfg.Comfy.ClientID,
		TimeoutSeconds: cfg.Comfy.RequestTimeout,
	})
	fastClient := fastvideo.NewClient(fastvideo.Config{
		BaseURL:                  cfg.FastVideo.BaseURL,
		TimeoutSeconds:           cfg.FastVideo.RequestTimeout,
		GenerationTimeoutSeconds: cfg.FastVideo.GenerationTimeout,
	})
	return NewGeneratorWithDependencies(cfg, store, logger, comfyClient, fastClient)
}

// NewGeneratorWithDependencies allows injecting backend clients (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, store *flags.Store, logger *slog.Logger, comfyClient ComfyService, fastClient FastVideoService) *Generator {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Comfy.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	timeout := time.Duration(cfg.Comfy.GenerationTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Generator{
		cfg:          cfg,
		flags:        store,
		logger:       logger.With(logging.String(logging.FieldComponent, "generate")),
		comfy:        comfyClient,
		fast:         fastClient,
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

func (g *Generator) backend() string {
	backend := strings.ToLower(strings.TrimSpace(g.cfg.Generation.Backend))
	if backend == "" {
		return BackendComfy
	}
	return backend
}

func (g *Generator) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, g.logger)

	if scenes := rc.StringSlice(pipeline.KeyScenePrompts); len(scenes) > 0 {
		return g.scenes(ctx, logger, rc, scenes)
	}
	return g.single(ctx, logger, rc)
}

func (g *Generator) single(ctx context.Context, logger *slog.Logger, rc *pipeline.Context) pipeline.Result {
	prompt := strings.TrimSpace(rc.String(pipeline.KeyPrompt))
	if prompt == "" {
		return pipeline.Failed(recovery.NewError(recovery.CategoryValidationFailed, "no prompt available for generation"))
	}

	tokens := estimateTokens(prompt)
	outcome := guard.CheckTokenBudget(tokens, g.cfg.Generation.TokenBudget, g.flags.State(flags.TokenGuard))
	if !outcome.ShouldContinue {
		logger.Error("token guard blocked generation",
			logging.Int("tokens", tokens),
			logging.Int("budget", g.cfg.Generation.TokenBudget))
		return pipeline.Failed(outcome.Err)
	}

	started := time.Now()
	var (
		updates map[string]any
		err     error
	)
	switch g.backend() {
	case BackendFastVideo:
		updates, err = g.fastvideoClip(ctx, logger, rc, prompt)
	case BackendComfy:
		updates, err = g.comfyClip(ctx, logger, rc)
	default:
		err = recovery.Errorf(recovery.CategoryValidationFailed, "unknown generation backend %q", g.backend())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.Cancelled()
		}
		return pipeline.Failed(err)
	}

	if _, ok := updates[pipeline.KeyGenerationSeconds]; !ok {
		updates[pipeline.KeyGenerationSeconds] = time.Since(started).Seconds()
	}
	updates[pipeline.KeyPrompt] = prompt

	logger.Info("generation complete",
		logging.String(logging.FieldBackend, g.backend()),
		logging.String(logging.FieldPath, stringUpdate(updates, pipeline.KeyVideoPath)),
		logging.Duration(logging.FieldDuration, time.Since(started)))

	if outcome.WasWarning {
		return pipeline.Warn(updates, outcome.UserMessage)
	}
	return pipeline.Succeeded(updates)
}

// comfyClip submits the prepared graph and waits for the done marker
// the producer writes next to the artifact.
func (g *Generator) comfyClip(ctx context.Context, logger *slog.Logger, rc *pipeline.Context) (map[string]any, error) {
	graphValue, ok := rc.Get(pipeline.KeyWorkflowGraph)
	if !ok {
		return nil, recovery.NewError(recovery.CategoryValidationFailed,
			"no prepared workflow graph in context; workflow-prepare must run first")
	}
	graph, ok := graphValue.(workflow.Graph)
	if !ok {
		return nil, recovery.Errorf(recovery.CategoryValidationFailed, "unexpected workflow graph type %T", graphValue)
	}
	prefix := strings.TrimSpace(rc.String(pipeline.KeyOutputPrefix))
	if prefix == "" {
		return nil, recovery.NewError(recovery.CategoryValidationFailed, "no output prefix in context")
	}

	started := time.Now()
	promptID, err := g.comfy.SubmitPrompt(ctx, graph)
	if err != nil {
		return nil, err
	}
	logger.Info("prompt queued",
		logging.String("prompt_id", promptID),
		logging.String(logging.FieldBackend, BackendComfy))

	marker, err := awaitMarker(ctx, MarkerPath(g.cfg.Paths.OutputDir, prefix), g.pollInterval, g.timeout)
	if err != nil {
		return nil, err
	}
	videoPath, err := resolveArtifact(g.cfg.Paths.OutputDir, prefix)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		pipeline.KeyVideoPath:         videoPath,
		pipeline.KeyPromptID:          promptID,
		pipeline.KeyFrameCount:        marker.FrameCount,
		pipeline.KeyGenerationSeconds: time.Since(started).Seconds(),
	}, nil
}

// fastvideoClip renders one clip through the sidecar's synchronous API.
func (g *Generator) fastvideoClip(ctx context.Context, logger *slog.Logger, rc *pipeline.Context, prompt string) (map[string]any, error) {
	response, err := g.fast.Generate(ctx, g.fastvideoRequest(rc, prompt))
	if err != nil {
		return nil, err
	}
	for _, warning := range response.Warnings {
		logger.Warn("backend warning",
			logging.String(logging.FieldWarning, warning),
			logging.String(logging.FieldBackend, BackendFastVideo))
	}
	updates := map[string]any{
		pipeline.KeyVideoPath:  response.VideoPath,
		pipeline.KeyFrameCount: response.Frames,
	}
	if response.Seed != nil {
		updates[pipeline.KeySeed] = *response.Seed
	}
	if seconds := response.DurationSeconds(); seconds > 0 {
		updates[pipeline.KeyGenerationSeconds] = seconds
	}
	return updates, nil
}

// scenes renders one clip per scene prompt for the stitch step.
func (g *Generator) scenes(ctx context.Context, logger *slog.Logger, rc *pipeline.Context, prompts []string) pipeline.Result {
	if g.backend() != BackendFastVideo {
		return pipeline.Failed(recovery.Errorf(recovery.CategoryValidationFailed,
			"narrative generation requires the fastvideo backend, configured backend is %q", g.backend()))
	}

	budget := g.cfg.Generation.TokenBudget
	state := g.flags.State(flags.TokenGuard)
	baseSeed := rc.Int64(pipeline.KeySeed)
	hasSeed := rc.Has(pipeline.KeySeed)

	var warning string
	scenePaths := make([]string, 0, len(prompts))
	totalFrames := 0
	started := time.Now()

	for index, prompt := range prompts {
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue
		}
		outcome := guard.CheckTokenBudget(estimateTokens(prompt), budget, state)
		if !outcome.ShouldContinue {
			return pipeline.Failed(outcome.Err)
		}
		if outcome.WasWarning && warning == "" {
			warning = fmt.Sprintf("scene %d: %s", index+1, outcome.UserMessage)
		}

		request := g.fastvideoRequest(rc, prompt)
		if hasSeed {
			// Offset keeps scenes visually distinct while the run stays
			// reproducible from the base seed.
			seed := baseSeed + int64(index)
			request.Seed = &seed
		}
		response, err := g.fast.Generate(ctx, request)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return pipeline.Cancelled()
			}
			return pipeline.Failed(fmt.Errorf("scene %d: %w", index+1, err))
		}
		logger.Info("scene generated",
			logging.Int("scene", index+1),
			logging.Int("frames", response.Frames),
			logging.String(logging.FieldPath, response.VideoPath))
		scenePaths = append(scenePaths, response.VideoPath)
		totalFrames += response.Frames
	}

	if len(scenePaths) == 0 {
		return pipeline.Failed(recovery.NewError(recovery.CategoryValidationFailed, "script produced no scenes to generate"))
	}
	updates := map[string]any{
		pipeline.KeyScenePaths:        scenePaths,
		pipeline.KeyFrameCount:        totalFrames,
		pipeline.KeyGenerationSeconds: time.Since(started).Seconds(),
	}
	if warning != "" {
		return pipeline.Warn(updates, warning)
	}
	return pipeline.Succeeded(updates)
}

func (g *Generator) fastvideoRequest(rc *pipeline.Context, prompt string) fastvideo.GenerateRequest {
	gen := g.cfg.Generation
	request := fastvideo.GenerateRequest{
		Prompt:         prompt,
		NegativePrompt: gen.NegativePrompt,
		FPS:            gen.FPS,
		NumFrames:      gen.FrameCount,
		Width:          gen.Width,
		Height:         gen.Height,
		OutputDir:      g.fastvideoOutputDir(rc),
	}
	if rc.Has(pipeline.KeySeed) {
		seed := rc.Int64(pipeline.KeySeed)
		request.Seed = &seed
	}
	return request
}

// fastvideoOutputDir resolves the directory the sidecar should write
// into. The output prefix names files for the ComfyUI path; for the
// sidecar only its directory part matters.
func (g *Generator) fastvideoOutputDir(rc *pipeline.Context) string {
	prefix := strings.TrimSpace(rc.String(pipeline.KeyOutputPrefix))
	if prefix == "" {
		return g.cfg.Paths.OutputDir
	}
	dir := filepath.Dir(prefix)
	if dir == "." {
		return g.cfg.Paths.OutputDir
	}
	return filepath.Join(g.cfg.Paths.OutputDir, dir)
}

// estimateTokens approximates the prompt's token count. Four runes per
// token tracks the backend tokenizers closely enough for budget checks.
func estimateTokens(prompt string) int {
	runes := utf8.RuneCountInString(prompt)
	return (runes + 3) / 4
}

func stringUpdate(updates map[string]any, key string) string {
	s, _ := updates[key].(string)
	return s
}
