package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIClient(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})
}

func TestOpenAIChat(t *testing.T) {
	var payload map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"plot\":{}}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	})

	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "system"},
			{Role: RoleUser, Content: "hello"},
		},
		Temperature: 0.7,
		MaxTokens:   8192,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !result.Success || result.Content != `{"plot":{}}` {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.TotalTokens != 7 {
		t.Errorf("expected 7 total tokens, got %d", result.TotalTokens)
	}

	if payload["model"] != "test-model" {
		t.Errorf("expected default model in payload, got %v", payload["model"])
	}
	if payload["max_tokens"] != float64(8192) {
		t.Errorf("expected max_tokens 8192, got %v", payload["max_tokens"])
	}
	msgs, _ := payload["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("expected system message first, got %v", first["role"])
	}
}

func TestOpenAIChatEmptyContent(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`)
	})
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIChatStatusError(t *testing.T) {
	calls := 0
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	})
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", terr.StatusCode)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestOpenAIChatStream(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"stream":true`) {
			t.Errorf("expected stream flag in body: %s", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"{\\\"a\\\"", ": 1", "}"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"%s\"},\"finish_reason\":null}]}\n\n", piece)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	result, err := client.ChatStream(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "x"}},
	}, func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if result.Content != `{"a": 1}` {
		t.Errorf("unexpected accumulated content %q", result.Content)
	}
	if len(deltas) != 3 {
		t.Errorf("expected 3 deltas, got %d", len(deltas))
	}
}

func TestOpenAIListModels(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[
			{"id":"zeta","object":"model","created":1,"owned_by":"x"},
			{"id":"alpha","object":"model","created":1,"owned_by":"x"}]}`)
	})
	ids, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if strings.Join(ids, ",") != "alpha,zeta" {
		t.Errorf("expected sorted ids, got %v", ids)
	}
}

func TestOpenAILive(t *testing.T) {
	cfg := LoadTestConfig()
	if !cfg.HasLive() {
		t.Skip("NOVELPARSER_TEST_API_KEY not set")
	}
	client := NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: `Reply with {"ok": true}`}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Content == "" {
		t.Error("expected content")
	}
}

func TestOpenAIRateLimiterStatus(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", RateLimit: 2})
	status := client.RateLimiter().Status()
	if status.RequestsPerSecond != 2 || status.TotalConsumed != 0 {
		t.Errorf("unexpected status: %+v", status)
	}

	unlimited := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if err := unlimited.RateLimiter().Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	status = unlimited.RateLimiter().Status()
	if status.RequestsPerSecond != 0 || status.TotalConsumed != 1 {
		t.Errorf("unexpected unlimited status: %+v", status)
	}
}
