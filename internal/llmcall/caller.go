package llmcall

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/providers"
	"github.com/jackzampolin/novelparser/internal/tokens"
	"github.com/jackzampolin/novelparser/internal/types"
)

// Request is one prompt to send, with the context it is recorded under.
type Request struct {
	Prompt    string
	PromptKey string
	NovelID   string
	ChapterID *int64
}

// Caller sends prompts through an LLMClient using an LLMConfig: it guards
// the context budget, adds the system message, and records the call.
// It makes a single attempt per request.
type Caller struct {
	client   providers.LLMClient
	recorder *Recorder
	logger   *slog.Logger
}

// NewCaller creates a Caller. recorder may be nil.
func NewCaller(client providers.LLMClient, recorder *Recorder, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{client: client, recorder: recorder, logger: logger}
}

// Client returns the underlying LLM client.
func (c *Caller) Client() providers.LLMClient {
	return c.client
}

func (c *Caller) chatRequest(cfg types.LLMConfig, prompt string) *providers.ChatRequest {
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = types.DefaultLLMConfig().MaxOutputTokens
	}
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: prompts.SystemPrompt()},
			{Role: providers.RoleUser, Content: prompt},
		},
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   maxTokens,
		RequestID:   uuid.New().String(),
	}
}

func (c *Caller) options(cfg types.LLMConfig, req Request, estimate int, streamed bool) RecordOptions {
	return RecordOptions{
		NovelID:         req.NovelID,
		ChapterID:       req.ChapterID,
		PromptKey:       req.PromptKey,
		PromptHash:      prompts.HashText(req.Prompt),
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		Streamed:        streamed,
		EstimatedTokens: estimate,
	}
}

// Call sends req and returns the full response text.
func (c *Caller) Call(ctx context.Context, cfg types.LLMConfig, req Request) (string, error) {
	estimate := tokens.Estimate(req.Prompt)
	if err := tokens.CheckPrompt(req.Prompt, cfg.MaxContextTokens); err != nil {
		return "", err
	}

	c.logger.Debug("sending model request", "prompt_key", req.PromptKey, "novel_id", req.NovelID, "tokens", estimate)
	result, err := c.client.Chat(ctx, c.chatRequest(cfg, req.Prompt))
	c.recorder.Record(result, c.options(cfg, req, estimate, false))
	if err != nil {
		return "", fmt.Errorf("%s call failed: %w", req.PromptKey, err)
	}
	return result.Content, nil
}

// Stream sends req as a streaming request. onChunk receives every fragment
// with the text accumulated so far; the full text is returned at the end.
func (c *Caller) Stream(ctx context.Context, cfg types.LLMConfig, req Request, onChunk func(types.StreamChunk)) (string, error) {
	estimate := tokens.Estimate(req.Prompt)
	if err := tokens.CheckPrompt(req.Prompt, cfg.MaxContextTokens); err != nil {
		return "", err
	}

	var chapterID int64
	if req.ChapterID != nil {
		chapterID = *req.ChapterID
	}

	var full strings.Builder
	onDelta := func(delta string) {
		full.WriteString(delta)
		if onChunk != nil {
			onChunk(types.StreamChunk{ChapterID: chapterID, Chunk: delta, FullContent: full.String()})
		}
	}

	c.logger.Debug("sending streaming model request", "prompt_key", req.PromptKey, "novel_id", req.NovelID, "tokens", estimate)
	result, err := c.client.ChatStream(ctx, c.chatRequest(cfg, req.Prompt), onDelta)
	c.recorder.Record(result, c.options(cfg, req, estimate, true))
	if err != nil {
		return "", fmt.Errorf("%s stream failed: %w", req.PromptKey, err)
	}
	return result.Content, nil
}

// Models lists the endpoint's model ids, sorted.
func (c *Caller) Models(ctx context.Context) ([]string, error) {
	ids, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return ids, nil
}
