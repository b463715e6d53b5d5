package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"slate/internal/runstate"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Status", statusError, "run failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Status:", "[ERROR] run failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Status", statusOK, "succeeded", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Run Status", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Run Status ==" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d does not match header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestStatusKindForRun(t *testing.T) {
	cases := []struct {
		status runstate.Status
		want   statusKind
	}{
		{runstate.StatusSucceeded, statusOK},
		{runstate.StatusFailed, statusError},
		{runstate.StatusCancelled, statusWarn},
		{runstate.StatusRunning, statusInfo},
		{runstate.StatusQueued, statusInfo},
	}
	for _, tc := range cases {
		if got := statusKindForRun(tc.status); got != tc.want {
			t.Fatalf("statusKindForRun(%s) = %d, want %d", tc.status, got, tc.want)
		}
	}
}

func TestRenderRunStatusIncludesWarnings(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	state := runstate.New("run-1", "text-to-video", started)
	state.Warn("quality", "quality: probe failed", started.Add(time.Second))
	if err := state.Finish(runstate.StatusSucceeded, "", started.Add(time.Minute)); err != nil {
		t.Fatalf("finish: %v", err)
	}

	joined := strings.Join(renderRunStatus(state, false), "\n")
	if !strings.Contains(joined, "[WARN] quality: probe failed") {
		t.Fatalf("expected warning line, got:\n%s", joined)
	}
	if !strings.Contains(joined, "[OK] succeeded") {
		t.Fatalf("expected status line, got:\n%s", joined)
	}
}

func TestFormatRunEvent(t *testing.T) {
	event := runstate.Event{
		Kind:      runstate.EventStepFailed,
		Step:      "generate",
		Message:   "backend unavailable",
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	line := formatRunEvent(event, false)
	if !strings.Contains(line, "step-failed generate") {
		t.Fatalf("expected kind and step in line, got %q", line)
	}
	if !strings.Contains(line, "backend unavailable") {
		t.Fatalf("expected message in line, got %q", line)
	}
}
