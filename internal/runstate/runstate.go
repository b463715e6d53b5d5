// Package runstate models the progress of one pipeline run: the live state
// consumers poll while the run executes, and the event log that explains
// what happened afterwards.
package runstate

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the run has stopped making progress.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// TerminalStatuses lists every status Terminal reports true for.
func TerminalStatuses() []Status {
	return []Status{StatusSucceeded, StatusFailed, StatusCancelled}
}

// EventKind tags entries in the run event log.
type EventKind string

const (
	EventStepStart    EventKind = "step-start"
	EventStepComplete EventKind = "step-complete"
	EventStepFailed   EventKind = "step-failed"
	EventLog          EventKind = "log"
	EventWarning      EventKind = "warning"
	EventError        EventKind = "error"
)

// Event is one timestamped entry in the run log.
type Event struct {
	Kind      EventKind `json:"kind"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunState is the polled progress record for one run.
type RunState struct {
	RunID          string     `json:"runId"`
	PipelineID     string     `json:"pipelineId"`
	Status         Status     `json:"status"`
	CurrentStep    string     `json:"currentStep,omitempty"`
	CompletedSteps []string   `json:"completedSteps"`
	TotalSteps     int        `json:"totalSteps"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	DurationMS     int64      `json:"durationMs,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	Events         []Event    `json:"events"`
}

// New returns a queued run record.
func New(runID, pipelineID string, startedAt time.Time) *RunState {
	return &RunState{
		RunID:          runID,
		PipelineID:     pipelineID,
		Status:         StatusQueued,
		CompletedSteps: []string{},
		StartedAt:      startedAt.UTC(),
		Events:         []Event{},
	}
}

// Append adds one event to the log.
func (r *RunState) Append(kind EventKind, step, message string, at time.Time) {
	r.Events = append(r.Events, Event{
		Kind:      kind,
		Step:      step,
		Message:   message,
		Timestamp: at.UTC(),
	})
}

// StepStarted records that a step began executing.
func (r *RunState) StepStarted(step string, at time.Time) {
	r.Status = StatusRunning
	r.CurrentStep = step
	r.Append(EventStepStart, step, "", at)
}

// StepCompleted records a step that reached a terminal result the run
// continues past. The message carries a skip reason or downgraded warning
// when there is one.
func (r *RunState) StepCompleted(step, message string, at time.Time) {
	r.CompletedSteps = append(r.CompletedSteps, step)
	if r.CurrentStep == step {
		r.CurrentStep = ""
	}
	r.Append(EventStepComplete, step, message, at)
}

// StepFailed records a hard step failure.
func (r *RunState) StepFailed(step, message string, at time.Time) {
	if r.CurrentStep == step {
		r.CurrentStep = ""
	}
	r.Append(EventStepFailed, step, message, at)
}

// Warn records a non-fatal condition against the run.
func (r *RunState) Warn(step, message string, at time.Time) {
	r.Warnings = append(r.Warnings, message)
	r.Append(EventWarning, step, message, at)
}

// Finish stamps the terminal status and computes the run duration.
func (r *RunState) Finish(status Status, errorMessage string, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("finish with non-terminal status %q", status)
	}
	at = at.UTC()
	r.Status = status
	r.CurrentStep = ""
	r.ErrorMessage = errorMessage
	r.FinishedAt = &at
	r.DurationMS = at.Sub(r.StartedAt).Milliseconds()
	if errorMessage != "" {
		r.Append(EventError, "", errorMessage, at)
	}
	return nil
}

// Progress renders completed/total for display, like "3/7".
func (r *RunState) Progress() string {
	return fmt.Sprintf("%d/%d", len(r.CompletedSteps), r.TotalSteps)
}
