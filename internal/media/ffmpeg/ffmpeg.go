package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Run executes ffmpeg with the provided arguments. Output is captured and
// folded into the error on failure; ffmpeg writes its diagnostics to stderr.
func Run(ctx context.Context, binary string, args ...string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	full := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	cmd := exec.CommandContext(ctx, binary, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", firstArgOf(args), err, tailOf(output))
	}
	return nil
}

// Interpolate re-encodes input at targetFPS using motion interpolation.
// The temporal mode maps to minterpolate's mode: "on" blends frames, "auto"
// and "adaptive" use motion-compensated interpolation.
func Interpolate(ctx context.Context, binary, input, output string, targetFPS, crf int, temporalMode string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("ffmpeg interpolate: empty input path")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("ffmpeg interpolate: empty output path")
	}
	if targetFPS <= 0 {
		return fmt.Errorf("ffmpeg interpolate: invalid target fps %d", targetFPS)
	}
	if crf <= 0 {
		crf = 18
	}
	mi := fmt.Sprintf("minterpolate=fps=%d:mi_mode=%s", targetFPS, interpolationMode(temporalMode))
	return Run(ctx, binary,
		"-i", input,
		"-vf", mi,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		"-an",
		output,
	)
}

func interpolationMode(temporalMode string) string {
	switch strings.ToLower(strings.TrimSpace(temporalMode)) {
	case "on":
		return "blend"
	default:
		return "mci"
	}
}

// Concat joins the inputs into one container without re-encoding. All
// inputs must share codec and geometry, which holds for clips rendered by
// the same workflow. The concat list file is written next to the output.
func Concat(ctx context.Context, binary string, inputs []string, output string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat: no inputs")
	}
	if strings.TrimSpace(output) == "" {
		return errors.New("ffmpeg concat: empty output path")
	}

	var list strings.Builder
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			return errors.New("ffmpeg concat: empty input path")
		}
		absolute, err := filepath.Abs(input)
		if err != nil {
			return fmt.Errorf("ffmpeg concat: resolve %q: %w", input, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(absolute, "'", `'\''`))
	}

	listPath := filepath.Join(filepath.Dir(output), "concat-list.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	return Run(ctx, binary,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		output,
	)
}

// ExtractFrames samples frames from input into outputPattern (a printf-style
// image path such as frame-%03d.png) at the given rate in frames per second.
// QA uses a fractional rate to spread a fixed sample count over the clip.
func ExtractFrames(ctx context.Context, binary, input, outputPattern string, rate float64) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("ffmpeg extract: empty input path")
	}
	if strings.TrimSpace(outputPattern) == "" {
		return errors.New("ffmpeg extract: empty output pattern")
	}
	if rate <= 0 {
		return fmt.Errorf("ffmpeg extract: invalid sample rate %v", rate)
	}
	return Run(ctx, binary,
		"-i", input,
		"-vf", fmt.Sprintf("fps=%s", strconv.FormatFloat(rate, 'f', -1, 64)),
		"-vsync", "vfr",
		outputPattern,
	)
}

func firstArgOf(args []string) string {
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			return filepath.Base(args[i+1])
		}
	}
	return "run"
}

// tailOf trims command output to its last few lines; ffmpeg failures bury
// the useful message at the bottom of a long banner.
func tailOf(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return "no output"
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
