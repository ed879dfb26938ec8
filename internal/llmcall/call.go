// Package llmcall makes model calls on behalf of the analysis pipeline and
// records every one of them for traceability.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/novelparser/internal/providers"
)

// maxRecordedResponse bounds the response text kept per record.
const maxRecordedResponse = 4000

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id" yaml:"id"`

	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	LatencyMs int       `json:"latency_ms" yaml:"latency_ms"`

	// Context references
	NovelID   string `json:"novel_id,omitempty" yaml:"novel_id,omitempty"`
	ChapterID *int64 `json:"chapter_id,omitempty" yaml:"chapter_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key" yaml:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty" yaml:"prompt_hash,omitempty"`

	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Streamed    bool    `json:"streamed" yaml:"streamed"`

	// EstimatedTokens is the local estimate of the prompt; Input/Output are
	// what the endpoint reported, zero when it reports nothing.
	EstimatedTokens int `json:"estimated_tokens" yaml:"estimated_tokens"`
	InputTokens     int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens    int `json:"output_tokens" yaml:"output_tokens"`

	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	NovelID   string
	ChapterID *int64

	PromptKey  string
	PromptHash string

	Model           string
	Temperature     float64
	Streamed        bool
	EstimatedTokens int
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	model := result.ModelUsed
	if model == "" {
		model = opts.Model
	}

	call := &Call{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		LatencyMs:       int(result.TotalTime.Milliseconds()),
		NovelID:         opts.NovelID,
		ChapterID:       opts.ChapterID,
		PromptKey:       opts.PromptKey,
		PromptHash:      opts.PromptHash,
		Provider:        result.Provider,
		Model:           model,
		Temperature:     opts.Temperature,
		Streamed:        opts.Streamed,
		EstimatedTokens: opts.EstimatedTokens,
		InputTokens:     result.PromptTokens,
		OutputTokens:    result.CompletionTokens,
		Response:        truncate(result.Content, maxRecordedResponse),
		Success:         result.Success,
	}
	if !result.Success {
		call.Error = result.ErrorMessage
	}
	return call
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	NovelID   string
	ChapterID *int64
	PromptKey string
	Success   *bool
	Limit     int
	Offset    int
}
