// Package providers talks to OpenAI-compatible chat completion endpoints.
package providers

import (
	"context"
	"time"
)

// LLMClient is the interface for chat completion requests.
type LLMClient interface {
	// Chat sends a chat completion request and waits for the full response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// ChatStream sends a streaming request. onDelta is called for every
	// non-empty content fragment in arrival order; the result carries the
	// accumulated content.
	ChatStream(ctx context.Context, req *ChatRequest, onDelta func(delta string)) (*ChatResult, error)

	// ListModels returns the model ids the endpoint serves, sorted.
	ListModels(ctx context.Context) ([]string, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	// Token counts as reported by the endpoint; zero when it reports none.
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	QueueTime     time.Duration `json:"queue_time"`
	ExecutionTime time.Duration `json:"execution_time"`
	TotalTime     time.Duration `json:"total_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}
