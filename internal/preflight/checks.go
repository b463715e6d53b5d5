package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"slate/internal/comfy"
	"slate/internal/config"
	"slate/internal/fastvideo"
	"slate/internal/llm"
)

// probeTimeout bounds every network check so a dead service cannot stall
// the whole preflight pass.
const probeTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has at least
// minFreeGB gigabytes available. A floor of zero disables the check.
func CheckDiskSpace(name, path string, minFreeGB int) Result {
	if minFreeGB <= 0 {
		return Result{Name: name, Passed: true, Detail: "floor disabled"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	floor := uint64(minFreeGB) * 1024 * 1024 * 1024
	if free < floor {
		return Result{Name: name, Detail: fmt.Sprintf("%s free on %s (need %d GiB)", humanize.IBytes(free), path, minFreeGB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)}
}

// CheckComfy verifies that the ComfyUI server answers /system_stats and
// that the primary GPU has at least the configured free VRAM. A floor of
// zero skips the VRAM comparison but still requires reachability.
func CheckComfy(ctx context.Context, cfg *config.Config) Result {
	const name = "ComfyUI"

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := comfy.NewClient(comfy.Config{
		BaseURL:        cfg.Comfy.BaseURL,
		ClientID:       cfg.Comfy.ClientID,
		TimeoutSeconds: cfg.Comfy.RequestTimeout,
	})
	stats, err := client.SystemStats(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}

	device, ok := stats.PrimaryDevice()
	if !ok {
		return Result{Name: name, Detail: "server reported no devices"}
	}
	if floor := cfg.Preflight.MinFreeVRAMMB; floor > 0 {
		floorBytes := uint64(floor) * 1024 * 1024
		if device.VRAMFree < floorBytes {
			return Result{
				Name:   name,
				Detail: fmt.Sprintf("%s has %s VRAM free (need %d MiB)", device.Name, humanize.IBytes(device.VRAMFree), floor),
			}
		}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s, %s VRAM free", device.Name, humanize.IBytes(device.VRAMFree)),
	}
}

// CheckFastVideo verifies that the FastVideo sidecar answers its health
// endpoint. The sidecar manages its own GPU, so no VRAM floor applies.
func CheckFastVideo(ctx context.Context, cfg *config.Config) Result {
	const name = "FastVideo"

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := fastvideo.NewClient(fastvideo.Config{
		BaseURL:        cfg.FastVideo.BaseURL,
		TimeoutSeconds: cfg.FastVideo.RequestTimeout,
	})
	status, err := client.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	detail := "sidecar ready"
	if status.ModelID != "" {
		detail = fmt.Sprintf("sidecar ready (%s)", status.ModelID)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a single attempt (no retries). QA scoring degrades to lexical
// similarity without an LLM, so this check is optional rather than blocking.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Optional: true, Detail: "API key missing (lexical scoring only)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeProbeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeProbeError produces a human-readable summary for probe failures.
func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (service unreachable)"
	}
	return err.Error()
}
