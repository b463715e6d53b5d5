package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"slate/internal/recovery"
)

const defaultHTTPTimeout = 15 * time.Second

// Config captures the runtime settings required to talk to ComfyUI.
type Config struct {
	BaseURL        string
	ClientID       string
	TimeoutSeconds int
}

// Client wraps the ComfyUI HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a ComfyUI client using the supplied configuration.
// When no client id is configured a random one is generated so the server
// can associate queued prompts with this process.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ClientID:       strings.TrimSpace(cfg.ClientID),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://127.0.0.1:8188"
	}
	if client.cfg.ClientID == "" {
		client.cfg.ClientID = uuid.NewString()
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// ClientID reports the identifier sent with queued prompts.
func (c *Client) ClientID() string {
	return c.cfg.ClientID
}

// Device describes one GPU (or CPU fallback) reported by the server.
type Device struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Index     int    `json:"index"`
	VRAMTotal uint64 `json:"vram_total"`
	VRAMFree  uint64 `json:"vram_free"`
}

// SystemStats is the subset of /system_stats the pipeline inspects.
type SystemStats struct {
	Devices []Device `json:"devices"`
}

// PrimaryDevice returns the first CUDA device, falling back to the first
// device of any type. The second return is false when the server reported
// no devices at all.
func (s SystemStats) PrimaryDevice() (Device, bool) {
	for _, device := range s.Devices {
		if strings.EqualFold(device.Type, "cuda") {
			return device, true
		}
	}
	if len(s.Devices) > 0 {
		return s.Devices[0], true
	}
	return Device{}, false
}

// SystemStats fetches GPU memory state from the server. Preflight uses it
// both as a reachability probe and to enforce the VRAM floor.
func (c *Client) SystemStats(ctx context.Context) (SystemStats, error) {
	var stats SystemStats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/system_stats", nil)
	if err != nil {
		return stats, fmt.Errorf("comfy stats: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stats, transportError("query system stats", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, statusError("query system stats", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("comfy stats: decode response: %w", err)
	}
	return stats, nil
}

type promptRequest struct {
	Prompt   any    `json:"prompt"`
	ClientID string `json:"client_id"`
}

type promptResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number"`
	NodeErrors map[string]any `json:"node_errors"`
	Error      *promptError   `json:"error"`
}

type promptError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// SubmitPrompt queues a workflow graph for execution and returns the prompt
// id assigned by the server. The graph may be any JSON-marshalable node map.
// A 400 response carrying node_errors means the graph references nodes or
// inputs the server rejects; that comes back as a workflow_invalid pipeline
// error listing the offending node ids.
func (c *Client) SubmitPrompt(ctx context.Context, workflow any) (string, error) {
	if emptyGraph(workflow) {
		return "", recovery.NewError(recovery.CategoryWorkflowInvalid, "workflow graph is empty")
	}
	encoded, err := json.Marshal(promptRequest{Prompt: workflow, ClientID: c.cfg.ClientID})
	if err != nil {
		return "", fmt.Errorf("comfy prompt: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/prompt", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("comfy prompt: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError("submit prompt", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("comfy prompt: read response: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return "", rejectionError(body)
	}
	if resp.StatusCode != http.StatusOK {
		return "", recovery.NewError(
			recovery.Classify(fmt.Sprintf("%d %s", resp.StatusCode, body)),
			fmt.Sprintf("comfy prompt: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		)
	}

	var decoded promptResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("comfy prompt: decode response: %w", err)
	}
	if len(decoded.NodeErrors) > 0 {
		return "", rejectionError(body)
	}
	if strings.TrimSpace(decoded.PromptID) == "" {
		return "", errors.New("comfy prompt: missing prompt_id in response")
	}
	return decoded.PromptID, nil
}

// emptyGraph reports whether the submitted workflow carries no nodes.
func emptyGraph(workflow any) bool {
	if workflow == nil {
		return true
	}
	value := reflect.ValueOf(workflow)
	switch value.Kind() {
	case reflect.Map, reflect.Slice:
		return value.Len() == 0
	}
	return false
}

// rejectionError turns a prompt rejection body into a workflow_invalid
// pipeline error. Node ids are attached as details when present.
func rejectionError(body []byte) error {
	var decoded promptResponse
	_ = json.Unmarshal(body, &decoded)

	message := "workflow rejected by server"
	if decoded.Error != nil && strings.TrimSpace(decoded.Error.Message) != "" {
		message = strings.TrimSpace(decoded.Error.Message)
	}
	perr := recovery.NewError(recovery.CategoryWorkflowInvalid, "comfy prompt: "+message)
	if len(decoded.NodeErrors) > 0 {
		nodes := make([]string, 0, len(decoded.NodeErrors))
		for node := range decoded.NodeErrors {
			nodes = append(nodes, node)
		}
		perr = perr.WithDetail("nodes", nodes)
	}
	return perr
}

type uploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// UploadImage pushes a keyframe into the server's input directory and
// returns the name the server stored it under. Workflows reference uploaded
// images by that name.
func (c *Client) UploadImage(ctx context.Context, filename string, data io.Reader) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", recovery.NewError(recovery.CategoryImageUploadFailed, "image upload: filename required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", uploadError(filename, fmt.Errorf("create form file: %w", err))
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", uploadError(filename, fmt.Errorf("copy image data: %w", err))
	}
	if err := writer.WriteField("overwrite", "true"); err != nil {
		return "", uploadError(filename, fmt.Errorf("write overwrite field: %w", err))
	}
	if err := writer.Close(); err != nil {
		return "", uploadError(filename, fmt.Errorf("finish multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/upload/image", &buf)
	if err != nil {
		return "", uploadError(filename, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", uploadError(filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", uploadError(filename, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", uploadError(filename, fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(decoded.Name) == "" {
		decoded.Name = filename
	}
	return decoded.Name, nil
}

func uploadError(filename string, err error) error {
	return recovery.Wrap(recovery.CategoryImageUploadFailed, "comfy", "image upload", err).
		WithDetail("filename", filename)
}

func transportError(operation string, err error) error {
	return recovery.Wrap(recovery.Classify(err.Error()), "comfy", operation, err)
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("comfy: %s: http %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	return recovery.NewError(recovery.Classify(message), message)
}
