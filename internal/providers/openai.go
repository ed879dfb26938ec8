package providers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4o"
	openAIDefaultURL   = "https://api.openai.com/v1"
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string        // any OpenAI-compatible endpoint, e.g. https://api.deepseek.com/v1
	Model      string        // default model when a request leaves it empty
	RateLimit  float64       // requests per second, 0 = unlimited
	Timeout    time.Duration // HTTP timeout, 0 = none
	HTTPClient *http.Client  // optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
// Requests are sent exactly once; the SDK's own retries are disabled.
type OpenAIClient struct {
	model   string
	limiter *RateLimiter
	client  openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIDefaultURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIClient{
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  client,
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// RateLimiter exposes the request limiter for status reporting.
func (c *OpenAIClient) RateLimiter() *RateLimiter {
	return c.limiter
}

func (c *OpenAIClient) params(req *ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}

// Chat sends a non-streaming chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	result := &ChatResult{Provider: OpenAIName, RequestID: req.RequestID}

	if err := c.limiter.Wait(ctx); err != nil {
		return failed(result, start, err)
	}
	result.QueueTime = time.Since(start)

	execStart := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	result.ExecutionTime = time.Since(execStart)
	if err != nil {
		return failed(result, start, mapOpenAIError("chat", err))
	}

	result.ModelUsed = resp.Model
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	if result.Content == "" {
		return failed(result, start, ErrEmptyResponse)
	}

	result.Success = true
	result.TotalTime = time.Since(start)
	return result, nil
}

// ChatStream sends a streaming chat completion request.
func (c *OpenAIClient) ChatStream(ctx context.Context, req *ChatRequest, onDelta func(delta string)) (*ChatResult, error) {
	start := time.Now()
	result := &ChatResult{Provider: OpenAIName, RequestID: req.RequestID}

	if err := c.limiter.Wait(ctx); err != nil {
		return failed(result, start, err)
	}
	result.QueueTime = time.Since(start)

	execStart := time.Now()
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	var content strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if result.ModelUsed == "" {
			result.ModelUsed = chunk.Model
		}
		if chunk.Usage.TotalTokens > 0 {
			result.PromptTokens = int(chunk.Usage.PromptTokens)
			result.CompletionTokens = int(chunk.Usage.CompletionTokens)
			result.TotalTokens = int(chunk.Usage.TotalTokens)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	result.ExecutionTime = time.Since(execStart)
	result.Content = content.String()

	if err := stream.Err(); err != nil {
		return failed(result, start, mapOpenAIError("stream", err))
	}
	if result.Content == "" {
		return failed(result, start, ErrEmptyResponse)
	}

	result.Success = true
	result.TotalTime = time.Since(start)
	return result, nil
}

// ListModels returns the ids served by the endpoint's /models route.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, mapOpenAIError("models", err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func failed(result *ChatResult, start time.Time, err error) (*ChatResult, error) {
	result.Success = false
	result.ErrorMessage = err.Error()
	result.TotalTime = time.Since(start)
	return result, err
}

var _ LLMClient = (*OpenAIClient)(nil)
