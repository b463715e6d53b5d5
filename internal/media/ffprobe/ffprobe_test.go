package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", AvgFrameRate: "16/1", NBFrames: "121"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
	if result.FPS() != 16 {
		t.Fatalf("unexpected fps: %v", result.FPS())
	}
	if result.FrameCount() != 121 {
		t.Fatalf("unexpected frame count: %d", result.FrameCount())
	}
}

func TestFPSParsesNTSCRational(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", AvgFrameRate: "30000/1001"},
		},
	}
	fps := result.FPS()
	if fps < 29.96 || fps > 29.98 {
		t.Fatalf("expected ~29.97 fps, got %v", fps)
	}
}

func TestFPSZeroWhenNoVideoStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio"}}}
	if result.FPS() != 0 {
		t.Fatalf("expected 0 fps, got %v", result.FPS())
	}
	if result.FrameCount() != 0 {
		t.Fatalf("expected 0 frames, got %d", result.FrameCount())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", AvgFrameRate: "0/0", NBFrames: "bad"},
		},
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if result.FPS() != 0 {
		t.Fatalf("expected fps 0, got %v", result.FPS())
	}
	if result.FrameCount() != 0 {
		t.Fatalf("expected frame count 0, got %d", result.FrameCount())
	}
}
