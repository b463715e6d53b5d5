package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slate/internal/recovery"
)

// Marker is the completion payload the producer writes next to the
// generated artifact. The producer writes <prefix>.done.tmp first and
// renames it into place, so a reader never observes a partial document.
type Marker struct {
	Timestamp  time.Time `json:"Timestamp"`
	FrameCount int       `json:"FrameCount"`
}

// MarkerPath resolves the done-marker location for an output prefix.
func MarkerPath(outputDir, prefix string) string {
	return filepath.Join(outputDir, prefix+".done")
}

func readMarker(path string) (Marker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Marker{}, err
	}
	var marker Marker
	if err := json.Unmarshal(raw, &marker); err != nil {
		return Marker{}, fmt.Errorf("decode done marker %s: %w", path, err)
	}
	return marker, nil
}

// awaitMarker polls for the done marker until it appears, the deadline
// lapses, or the context is cancelled. The deadline maps to api_timeout
// so retry policy treats a stalled backend like an unresponsive one.
func awaitMarker(ctx context.Context, path string, interval, timeout time.Duration) (Marker, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		marker, err := readMarker(path)
		if err == nil {
			return marker, nil
		}
		if !os.IsNotExist(err) {
			return Marker{}, err
		}
		select {
		case <-ctx.Done():
			return Marker{}, ctx.Err()
		case <-deadline.C:
			return Marker{}, recovery.Errorf(recovery.CategoryAPITimeout,
				"generation did not finish within %s", timeout).
				WithDetail("marker", path)
		case <-ticker.C:
		}
	}
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
}

// resolveArtifact locates the freshest video file written under the
// output prefix. ComfyUI appends a counter and extension to the prefix,
// so the exact filename is not known ahead of time.
func resolveArtifact(outputDir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, prefix+"*"))
	if err != nil {
		return "", fmt.Errorf("resolve artifact: %w", err)
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, match := range matches {
		if !videoExtensions[filepath.Ext(match)] {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = match
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no video artifact found for prefix %s", prefix)
	}
	return newest, nil
}
