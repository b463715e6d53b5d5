package fastvideo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slate/internal/recovery"
)

const (
	defaultHTTPTimeout       = 10 * time.Second
	defaultGenerationTimeout = 30 * time.Minute
)

// Config captures the runtime settings required to talk to the sidecar.
type Config struct {
	BaseURL                  string
	TimeoutSeconds           int
	GenerationTimeoutSeconds int
}

// Client wraps the FastVideo adapter HTTP API. Generation requests block
// server-side for the full render, so they run on a separate HTTP client
// with a much longer timeout than the health probe.
type Client struct {
	cfg            Config
	pingClient     *http.Client
	generateClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides both underlying HTTP clients.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.pingClient = client
			c.generateClient = client
		}
	}
}

// NewClient constructs a FastVideo client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	pingTimeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		pingTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	generateTimeout := defaultGenerationTimeout
	if cfg.GenerationTimeoutSeconds > 0 {
		generateTimeout = time.Duration(cfg.GenerationTimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:                  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds:           cfg.TimeoutSeconds,
			GenerationTimeoutSeconds: cfg.GenerationTimeoutSeconds,
		},
		pingClient:     &http.Client{Timeout: pingTimeout},
		generateClient: &http.Client{Timeout: generateTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://127.0.0.1:8055"
	}
	return client
}

// HealthStatus is the sidecar's /health payload.
type HealthStatus struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	ModelID     string `json:"modelId"`
	ModelLoaded bool   `json:"modelLoaded"`
}

// Health probes the sidecar without forcing a model load.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return status, fmt.Errorf("fastvideo health: build request: %w", err)
	}
	resp, err := c.pingClient.Do(req)
	if err != nil {
		return status, transportError("health probe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := fmt.Sprintf("fastvideo health: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return status, recovery.NewError(recovery.Classify(message), message)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("fastvideo health: decode response: %w", err)
	}
	if status.Status != "ok" {
		return status, recovery.Errorf(recovery.CategoryAPIUnavailable, "fastvideo health: sidecar reported %q", status.Status)
	}
	return status, nil
}

// GenerateRequest mirrors the sidecar's generate payload. Field names are
// camelCase on the wire.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
	KeyframeBase64 string `json:"keyframeBase64,omitempty"`
	FPS            int    `json:"fps,omitempty"`
	NumFrames      int    `json:"numFrames,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`
	OutputDir      string `json:"outputDir,omitempty"`
}

// GenerateResponse is the sidecar's reply once rendering finishes.
type GenerateResponse struct {
	Status     string   `json:"status"`
	VideoPath  string   `json:"outputVideoPath"`
	Frames     int      `json:"frames"`
	DurationMS int64    `json:"durationMs"`
	Seed       *int64   `json:"seed"`
	Warnings   []string `json:"warnings"`
	Error      string   `json:"error"`
}

// DurationSeconds reports the render wall clock in seconds.
func (r GenerateResponse) DurationSeconds() float64 {
	return float64(r.DurationMS) / 1000.0
}

// Generate renders a video and blocks until the sidecar finishes or the
// generation timeout expires. The returned path points at the MP4 the
// sidecar wrote under the requested output directory.
func (c *Client) Generate(ctx context.Context, request GenerateRequest) (GenerateResponse, error) {
	var response GenerateResponse
	if strings.TrimSpace(request.Prompt) == "" {
		return response, errors.New("fastvideo generate: prompt required")
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return response, fmt.Errorf("fastvideo generate: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(encoded))
	if err != nil {
		return response, fmt.Errorf("fastvideo generate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.generateClient.Do(req)
	if err != nil {
		return response, transportError("generate", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return response, fmt.Errorf("fastvideo generate: read response: %w", err)
	}
	if resp.StatusCode == http.StatusInsufficientStorage {
		// The sidecar reports CUDA OOM as 507.
		return response, recovery.NewError(recovery.CategoryGenerationBlocked,
			"fastvideo generate: GPU out of memory: "+detailFrom(body)).
			WithDetail("status", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("fastvideo generate: http %d: %s", resp.StatusCode, detailFrom(body))
		return response, recovery.NewError(recovery.Classify(message), message)
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, fmt.Errorf("fastvideo generate: decode response: %w", err)
	}
	if response.Status != "complete" {
		message := strings.TrimSpace(response.Error)
		if message == "" {
			message = fmt.Sprintf("sidecar reported status %q", response.Status)
		}
		return response, recovery.NewError(recovery.Classify(message), "fastvideo generate: "+message)
	}
	if strings.TrimSpace(response.VideoPath) == "" {
		return response, errors.New("fastvideo generate: response missing outputVideoPath")
	}
	return response, nil
}

// detailFrom extracts FastAPI's {"detail": ...} error body, falling back to
// the raw text.
func detailFrom(body []byte) string {
	var decoded struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && strings.TrimSpace(decoded.Detail) != "" {
		return strings.TrimSpace(decoded.Detail)
	}
	return strings.TrimSpace(string(body))
}

func transportError(operation string, err error) error {
	return recovery.Wrap(recovery.Classify(err.Error()), "fastvideo", operation, err)
}
