package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"slate/internal/config"
	"slate/internal/fileutil"
	"slate/internal/llm"
	"slate/internal/logging"
	"slate/internal/media/ffprobe"
	"slate/internal/pipeline"
)

// Verdicts merged into the run context and summaries.
const (
	VerdictPass = "pass"
	VerdictWarn = "warn"
	VerdictFail = "fail"
)

// Scorer is the slice of the LLM client used for alignment scoring.
type Scorer interface {
	Configured() bool
	ScoreAlignment(ctx context.Context, prompt string, observations []string) (llm.Alignment, error)
}

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Report is the QA artifact written next to the video.
type Report struct {
	Verdict   string    `json:"verdict"`
	Score     *float64  `json:"score,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Issues    []string  `json:"issues,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Checker is the quality step body.
type Checker struct {
	cfg    *config.Config
	logger *slog.Logger
	scorer Scorer
	probe  probeFunc
}

// NewChecker constructs the quality step body with a live LLM scorer.
func NewChecker(cfg *config.Config, logger *slog.Logger) *Checker {
	return NewCheckerWithDependencies(cfg, logger, newScorer(cfg))
}

// NewCheckerWithDependencies allows injecting the scorer (used in tests).
func NewCheckerWithDependencies(cfg *config.Config, logger *slog.Logger, scorer Scorer) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "quality")),
		scorer: scorer,
		probe:  ffprobe.Inspect,
	}
}

func newScorer(cfg *config.Config) Scorer {
	llmCfg := cfg.GetLLM()
	return llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
}

func (c *Checker) Execute(ctx context.Context, rc *pipeline.Context) pipeline.Result {
	logger := logging.WithContext(ctx, c.logger)

	if !c.cfg.Quality.Enabled {
		return pipeline.Skipped(pipeline.KeyQASkipped, "quality checks disabled")
	}
	videoPath := strings.TrimSpace(rc.String(pipeline.KeyVideoPath))
	if videoPath == "" {
		return pipeline.FailedMessage("no video available for quality checks")
	}

	issues, err := c.inspect(ctx, rc, videoPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return pipeline.Cancelled()
		}
		return pipeline.Failed(err)
	}

	var (
		score   *float64
		reason  string
		warning string
	)
	prompt := strings.TrimSpace(rc.String(pipeline.KeyPrompt))
	observations := rc.StringSlice(pipeline.KeyScenePrompts)
	if prompt != "" && len(observations) > 0 {
		if c.scorer != nil && c.scorer.Configured() {
			alignment, scoreErr := c.scorer.ScoreAlignment(ctx, prompt, observations)
			if scoreErr != nil {
				warning = fmt.Sprintf("alignment scoring failed: %v", scoreErr)
				logger.Warn("alignment scoring failed", logging.Error(scoreErr))
			} else {
				score = &alignment.Score
				reason = alignment.Reason
			}
		} else if lexical, ok := lexicalScore(prompt, observations); ok {
			score = &lexical
			reason = "lexical similarity, no LLM configured"
			logger.Info("scored with lexical fallback", logging.Float64("score", lexical))
		}
	}

	verdict := c.resolveVerdict(issues, score)
	report := Report{
		Verdict:   verdict,
		Score:     score,
		Reason:    reason,
		Issues:    issues,
		CheckedAt: time.Now().UTC(),
	}
	if err := writeReport(filepath.Join(filepath.Dir(videoPath), "qa.json"), report); err != nil {
		logger.Warn("qa report write failed", logging.Error(err))
	}

	updates := map[string]any{pipeline.KeyQAVerdict: verdict}
	if score != nil {
		updates[pipeline.KeyQAScore] = *score
	}
	logger.Info("quality checks complete",
		logging.String("verdict", verdict),
		logging.Int("issues", len(issues)))

	if warning == "" && verdict == VerdictFail {
		warning = failSummary(issues, score, c.passThreshold())
	}
	if warning != "" {
		return pipeline.Warn(updates, warning)
	}
	return pipeline.Succeeded(updates)
}

// inspect runs the mechanical ffprobe checks. Probe errors are
// infrastructure failures and abort the step; findings about the clip
// itself come back as issues.
func (c *Checker) inspect(ctx context.Context, rc *pipeline.Context, videoPath string) ([]string, error) {
	result, err := c.probe(ctx, c.cfg.FFprobeBinary(), videoPath)
	if err != nil {
		return nil, err
	}
	var issues []string
	if result.VideoStreamCount() == 0 {
		issues = append(issues, "no video stream present")
	} else if result.FPS() <= 0 {
		issues = append(issues, "frame rate not reported")
	}

	expectedFrames := rc.Int(pipeline.KeyFrameCount)
	fps := c.cfg.Generation.FPS
	if expectedFrames > 0 && fps > 0 {
		expected := float64(expectedFrames) / float64(fps)
		actual := result.DurationSeconds()
		tolerance := c.cfg.Quality.DurationToleranceSeconds
		if tolerance <= 0 {
			tolerance = 2.0
		}
		if actual > 0 && math.Abs(actual-expected) > tolerance {
			issues = append(issues, fmt.Sprintf("duration %.2fs drifts from expected %.2fs by more than %.1fs", actual, expected, tolerance))
		}
	}
	return issues, nil
}

func (c *Checker) passThreshold() float64 {
	if c.cfg.Quality.SimilarityPass > 0 {
		return c.cfg.Quality.SimilarityPass
	}
	return 0.75
}

func (c *Checker) strongThreshold() float64 {
	if c.cfg.Quality.SimilarityStrong > 0 {
		return c.cfg.Quality.SimilarityStrong
	}
	return 0.85
}

func (c *Checker) resolveVerdict(issues []string, score *float64) string {
	if len(issues) > 0 {
		return VerdictFail
	}
	if score == nil {
		return VerdictPass
	}
	switch {
	case *score >= c.strongThreshold():
		return VerdictPass
	case *score >= c.passThreshold():
		return VerdictWarn
	default:
		return VerdictFail
	}
}

func failSummary(issues []string, score *float64, passThreshold float64) string {
	if len(issues) > 0 {
		return "quality verdict fail: " + strings.Join(issues, "; ")
	}
	if score != nil {
		return fmt.Sprintf("quality verdict fail: alignment score %.2f below %.2f", *score, passThreshold)
	}
	return "quality verdict fail"
}

func writeReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode qa report: %w", err)
	}
	return fileutil.WriteAtomic(path, data, 0o644)
}
