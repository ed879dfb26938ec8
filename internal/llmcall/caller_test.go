package llmcall

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/providers"
	"github.com/jackzampolin/novelparser/internal/tokens"
	"github.com/jackzampolin/novelparser/internal/types"
)

type memorySink struct {
	mu    sync.Mutex
	calls []*Call
	err   error
}

func (s *memorySink) InsertLLMCall(ctx context.Context, call *Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func testConfig() types.LLMConfig {
	cfg := types.DefaultLLMConfig()
	cfg.Model = "mock-model"
	return cfg
}

func TestCallerCall(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.ResponseText = `{"plot":{"summary":"x"}}`
	sink := &memorySink{}
	caller := NewCaller(mock, NewRecorder(sink, nil), nil)

	chapterID := int64(7)
	out, err := caller.Call(context.Background(), testConfig(), Request{
		Prompt:    "analyze me",
		PromptKey: prompts.ChapterKey,
		NovelID:   "n1",
		ChapterID: &chapterID,
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out != mock.ResponseText {
		t.Errorf("unexpected output %q", out)
	}

	if len(sink.calls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(sink.calls))
	}
	rec := sink.calls[0]
	if rec.PromptKey != prompts.ChapterKey || rec.NovelID != "n1" || *rec.ChapterID != 7 || !rec.Success {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.EstimatedTokens != tokens.Estimate("analyze me") {
		t.Errorf("expected estimated tokens recorded, got %d", rec.EstimatedTokens)
	}
	if rec.PromptHash != prompts.HashText("analyze me") {
		t.Error("expected prompt hash recorded")
	}
}

func TestCallerBudgetGuard(t *testing.T) {
	mock := providers.NewMockClient()
	caller := NewCaller(mock, nil, nil)

	cfg := testConfig()
	cfg.MaxContextTokens = 5
	_, err := caller.Call(context.Background(), cfg, Request{Prompt: strings.Repeat("字", 10)})
	var berr *tokens.BudgetError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BudgetError, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Error("budget guard must reject before any request")
	}
}

func TestCallerStream(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.ResponseText = "0123456789"
	mock.StreamChunkSize = 4
	sink := &memorySink{}
	caller := NewCaller(mock, NewRecorder(sink, nil), nil)

	id := int64(3)
	var chunks []types.StreamChunk
	out, err := caller.Stream(context.Background(), testConfig(), Request{Prompt: "p", ChapterID: &id}, func(c types.StreamChunk) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out != "0123456789" {
		t.Errorf("unexpected output %q", out)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	last := chunks[2]
	if last.ChapterID != 3 || last.Chunk != "89" || last.FullContent != "0123456789" {
		t.Errorf("unexpected last chunk: %+v", last)
	}
	if !sink.calls[0].Streamed {
		t.Error("expected streamed flag on record")
	}
}

func TestCallerFailureIsRecorded(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	sink := &memorySink{err: errors.New("disk full")}
	caller := NewCaller(mock, NewRecorder(sink, nil), nil)

	if _, err := caller.Call(context.Background(), testConfig(), Request{Prompt: "p", PromptKey: "k"}); err == nil {
		t.Fatal("expected failure")
	}
	if len(sink.calls) != 1 || sink.calls[0].Success || sink.calls[0].Error == "" {
		t.Errorf("expected failed call recorded, got %+v", sink.calls)
	}
}

func TestCallerSendsSystemPromptAndMaxTokens(t *testing.T) {
	var seen *providers.ChatRequest
	client := &captureClient{onChat: func(req *providers.ChatRequest) { seen = req }}
	caller := NewCaller(client, nil, nil)

	cfg := testConfig()
	cfg.MaxOutputTokens = 0
	if _, err := caller.Call(context.Background(), cfg, Request{Prompt: "p"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if seen.Messages[0].Role != providers.RoleSystem || seen.Messages[0].Content != prompts.SystemPrompt() {
		t.Errorf("expected system prompt first, got %+v", seen.Messages[0])
	}
	if seen.MaxTokens != 8192 {
		t.Errorf("expected fallback max tokens 8192, got %d", seen.MaxTokens)
	}
}

type captureClient struct {
	providers.MockClient
	onChat func(req *providers.ChatRequest)
}

func (c *captureClient) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	c.onChat(req)
	return &providers.ChatResult{Content: "ok", Success: true}, nil
}
