package generate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAwaitMarkerReadsPayload(t *testing.T) {
	dir := t.TempDir()
	path := MarkerPath(dir, "clip")
	payload := `{"Timestamp":"2026-08-25T10:00:00Z","FrameCount":81}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	marker, err := awaitMarker(context.Background(), path, time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("awaitMarker failed: %v", err)
	}
	if marker.FrameCount != 81 {
		t.Fatalf("unexpected frame count: %d", marker.FrameCount)
	}
	if marker.Timestamp.IsZero() {
		t.Fatal("expected timestamp to parse")
	}
}

func TestAwaitMarkerAppearsLate(t *testing.T) {
	dir := t.TempDir()
	path := MarkerPath(dir, "clip")
	go func() {
		time.Sleep(10 * time.Millisecond)
		// Mimic the producer protocol: temp file first, then rename.
		tmp := path + ".tmp"
		_ = os.WriteFile(tmp, []byte(`{"FrameCount":33}`), 0o644)
		_ = os.Rename(tmp, path)
	}()
	marker, err := awaitMarker(context.Background(), path, 2*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("awaitMarker failed: %v", err)
	}
	if marker.FrameCount != 33 {
		t.Fatalf("unexpected frame count: %d", marker.FrameCount)
	}
}

func TestAwaitMarkerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err := awaitMarker(ctx, filepath.Join(t.TempDir(), "absent.done"), time.Millisecond, time.Minute)
	if err == nil || !strings.Contains(err.Error(), "canceled") {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestAwaitMarkerRejectsCorruptPayload(t *testing.T) {
	dir := t.TempDir()
	path := MarkerPath(dir, "clip")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	_, err := awaitMarker(context.Background(), path, time.Millisecond, 50*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "decode done marker") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestResolveArtifactPicksNewestVideo(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "clip_00001.mp4")
	newer := filepath.Join(dir, "clip_00002.mp4")
	for _, path := range []string{older, newer} {
		if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	// Sidecar files under the same prefix must not win.
	if err := os.WriteFile(filepath.Join(dir, "clip_00003.png"), []byte("frame"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := resolveArtifact(dir, "clip")
	if err != nil {
		t.Fatalf("resolveArtifact failed: %v", err)
	}
	if got != newer {
		t.Fatalf("expected %s, got %s", newer, got)
	}
}

func TestResolveArtifactNoMatch(t *testing.T) {
	_, err := resolveArtifact(t.TempDir(), "clip")
	if err == nil || !strings.Contains(err.Error(), "no video artifact") {
		t.Fatalf("expected no-artifact error, got %v", err)
	}
}
