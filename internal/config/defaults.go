package config

const (
	defaultRunsDir            = "~/.local/share/slate/runs"
	defaultOutputDir          = "~/.local/share/slate/output"
	defaultLogDir             = "~/.local/share/slate/logs"
	defaultWorkflowDir        = "~/.config/slate/workflows"
	defaultLedgerPath         = "~/.local/share/slate/slate.db"
	defaultComfyBaseURL       = "http://127.0.0.1:8188"
	defaultComfyTimeout       = 30
	defaultComfyPollInterval  = 2
	defaultGenerationTimeout  = 900
	defaultFastVideoBaseURL   = "http://127.0.0.1:8000"
	defaultFastVideoTimeout   = 60
	defaultBackend            = "comfy"
	defaultTokenBudget        = 600
	defaultFrameCount         = 81
	defaultFPS                = 16
	defaultWidth              = 832
	defaultHeight             = 480
	defaultNegativePrompt     = "blurry, distorted, low quality, watermark, text overlay"
	defaultTemporalMode       = "auto"
	defaultTargetFPS          = 32
	defaultCRF                = 18
	defaultSimilarityPass     = 0.75
	defaultSimilarityStrong   = 0.85
	defaultDurationTolerance  = 2.0
	defaultFrameSamples       = 3
	defaultBenchRuns          = 1
	defaultMinFreeDiskGB      = 5
	defaultMinFreeVRAMMB      = 4096
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/slate-video/slate"
	defaultLLMTitle           = "Slate QA"
	defaultLLMTimeoutSeconds  = 60
	defaultMaxScenes          = 6
	defaultSceneSeconds       = 5
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultStatusPollInterval = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RunsDir:     defaultRunsDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			WorkflowDir: defaultWorkflowDir,
			LedgerPath:  defaultLedgerPath,
		},
		Comfy: Comfy{
			BaseURL:           defaultComfyBaseURL,
			RequestTimeout:    defaultComfyTimeout,
			PollInterval:      defaultComfyPollInterval,
			GenerationTimeout: defaultGenerationTimeout,
		},
		FastVideo: FastVideo{
			BaseURL:           defaultFastVideoBaseURL,
			RequestTimeout:    defaultFastVideoTimeout,
			GenerationTimeout: defaultGenerationTimeout,
		},
		Generation: Generation{
			Backend:        defaultBackend,
			TokenBudget:    defaultTokenBudget,
			FrameCount:     defaultFrameCount,
			FPS:            defaultFPS,
			Width:          defaultWidth,
			Height:         defaultHeight,
			NegativePrompt: defaultNegativePrompt,
		},
		Enhance: Enhance{
			Enabled:      true,
			TemporalMode: defaultTemporalMode,
			TargetFPS:    defaultTargetFPS,
			CRF:          defaultCRF,
		},
		Quality: Quality{
			Enabled:                  true,
			SimilarityPass:           defaultSimilarityPass,
			SimilarityStrong:         defaultSimilarityStrong,
			DurationToleranceSeconds: defaultDurationTolerance,
			FrameSamples:             defaultFrameSamples,
		},
		Bench: Bench{
			Enabled: true,
			Runs:    defaultBenchRuns,
		},
		Preflight: Preflight{
			MinFreeDiskGB: defaultMinFreeDiskGB,
			MinFreeVRAMMB: defaultMinFreeVRAMMB,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Script: Script{
			MaxScenes:    defaultMaxScenes,
			SceneSeconds: defaultSceneSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunComplete:    true,
			RunFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Runner: Runner{
			StatusPollInterval: defaultStatusPollInterval,
		},
	}
}
