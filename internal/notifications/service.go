package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slate/internal/config"
)

const userAgent = "Slate/0.1.0"

// Event identifies a run milestone worth telling a human about.
type Event string

const (
	EventRunCompleted Event = "run-completed"
	EventRunFailed    Event = "run-failed"
	EventWarnings     Event = "warnings"
	EventTest         Event = "test"
)

// Payload carries the event-specific fields used to format the message.
type Payload map[string]string

func (p Payload) get(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

// Service defines the notification surface exposed to the runner.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		runComplete: cfg.Notifications.RunComplete,
		runFailed:   cfg.Notifications.RunFailed,
		warnEnabled: cfg.Notifications.Warnings,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	runComplete bool
	runFailed   bool
	warnEnabled bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventRunCompleted:
		return n.runComplete
	case EventRunFailed:
		return n.runFailed
	case EventWarnings:
		return n.warnEnabled
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunCompleted:
		pipeline := payload.get("pipelineId")
		if pipeline == "" {
			pipeline = payload.get("runId")
		}
		body := fmt.Sprintf("✅ Run complete: %s", pipeline)
		if duration := payload.get("duration"); duration != "" {
			body = fmt.Sprintf("%s in %s", body, duration)
		}
		if video := payload.get("videoPath"); video != "" {
			body = fmt.Sprintf("%s\nVideo: %s", body, video)
		}
		return message{
			title:    "Slate - Run Complete",
			body:     body,
			tags:     []string{"slate", "run", "completed"},
			priority: "high",
		}, true
	case EventRunFailed:
		reason := payload.get("error")
		if reason == "" {
			reason = "unknown"
		}
		var builder strings.Builder
		builder.WriteString("❌ Run failed")
		if run := payload.get("runId"); run != "" {
			builder.WriteString(" (")
			builder.WriteString(run)
			builder.WriteString(")")
		}
		builder.WriteString(": ")
		builder.WriteString(reason)
		return message{
			title:    "Slate - Run Failed",
			body:     builder.String(),
			tags:     []string{"slate", "run", "failed"},
			priority: "high",
		}, true
	case EventWarnings:
		count := payload.get("count")
		if count == "" {
			return message{}, false
		}
		body := fmt.Sprintf("⚠️ Run finished with %s warnings", count)
		if first := payload.get("first"); first != "" {
			body = fmt.Sprintf("%s\nFirst: %s", body, first)
		}
		return message{
			title: "Slate - Warnings",
			body:  body,
			tags:  []string{"slate", "run", "warnings"},
		}, true
	case EventTest:
		return message{
			title:    "Slate - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"slate", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
