package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"ok":true}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientScoreAlignment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var decoded chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(decoded.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(decoded.Messages))
		}
		if !strings.Contains(decoded.Messages[1].Content, "Observed frames:") {
			t.Fatalf("expected frame observations in user prompt, got %q", decoded.Messages[1].Content)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"score":0.82,"reason":"harbor and fog both present"}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	alignment, err := client.ScoreAlignment(context.Background(), "a foggy harbor at dawn", []string{"a harbor shrouded in fog", "boats in mist"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 0.82 {
		t.Fatalf("expected score 0.82, got %v", alignment.Score)
	}
	if alignment.Reason == "" {
		t.Fatal("expected a reason")
	}
}

func TestClientScoreAlignmentClampsScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"score":1.7,"reason":"overenthusiastic model"}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	alignment, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 1 {
		t.Fatalf("expected score clamped to 1, got %v", alignment.Score)
	}
}

func TestClientScoreAlignmentCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": "```json\n{\"score\":0.6,\"reason\":\"subject differs\"}\n```",
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	alignment, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 0.6 {
		t.Fatalf("expected score 0.6, got %v", alignment.Score)
	}
	if !strings.Contains(alignment.Raw, "```") {
		t.Fatalf("expected raw payload to retain code fence, got %q", alignment.Raw)
	}
}

func TestClientExpandScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"scenes":["a lighthouse at dusk","waves crash against the rocks","  ","the beam sweeps across the sea"]}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	scenes, err := client.ExpandScript(context.Background(), "a night at a lighthouse", 5)
	if err != nil {
		t.Fatalf("ExpandScript returned error: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes after blank filtering, got %d", len(scenes))
	}
	if scenes[0] != "a lighthouse at dusk" {
		t.Fatalf("unexpected first scene %q", scenes[0])
	}
}

func TestClientExpandScriptTruncatesToMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"scenes":["one","two","three","four"]}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	scenes, err := client.ExpandScript(context.Background(), "concept", 2)
	if err != nil {
		t.Fatalf("ExpandScript returned error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected truncation to 2 scenes, got %d", len(scenes))
	}
}

func TestClientScoreAlignmentToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "tool_calls",
					"message": map[string]any{
						"content": "",
						"tool_calls": []any{
							map[string]any{
								"type": "function",
								"id":   "call_1",
								"function": map[string]any{
									"name":      "score_alignment",
									"arguments": `{"score":0.91,"reason":"matches"}`,
								},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	alignment, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 0.91 {
		t.Fatalf("expected score 0.91, got %v", alignment.Score)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"score":0.9,"reason":"demo"}`,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	alignment, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 0.9 {
		t.Fatalf("expected score 0.9, got %v", alignment.Score)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"score":0.75,"reason":"demo"}`
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content": content,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	alignment, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"})
	if err != nil {
		t.Fatalf("ScoreAlignment returned error: %v", err)
	}
	if alignment.Score != 0.75 {
		t.Fatalf("expected score 0.75, got %v", alignment.Score)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestClientUnconfigured(t *testing.T) {
	client := NewClient(Config{})
	if client.Configured() {
		t.Fatal("expected client without api key to report unconfigured")
	}
	if _, err := client.ScoreAlignment(context.Background(), "prompt", []string{"frame"}); err == nil {
		t.Fatal("expected score without api key to fail")
	}
}
