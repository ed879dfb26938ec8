package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// Respond, when set, produces the response for a request's last
	// message. It overrides ResponseText and may return an error.
	Respond func(prompt string) (string, error)

	// StreamChunkSize splits streamed content into runes of this size (default 8).
	StreamChunkSize int

	Models []string

	requestCount atomic.Int64
	inFlight     atomic.Int64
	maxInFlight  atomic.Int64

	mu      sync.Mutex
	prompts []string
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseText: "mock response",
		Models:       []string{"mock-small", "mock-large"},
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return c.doRequest(ctx, req)
}

// ChatStream sends a mock request and replays the response in chunks.
func (c *MockClient) ChatStream(ctx context.Context, req *ChatRequest, onDelta func(delta string)) (*ChatResult, error) {
	result, err := c.doRequest(ctx, req)
	if err != nil {
		return result, err
	}
	if onDelta != nil {
		size := c.StreamChunkSize
		if size <= 0 {
			size = 8
		}
		runes := []rune(result.Content)
		for i := 0; i < len(runes); i += size {
			end := i + size
			if end > len(runes) {
				end = len(runes)
			}
			onDelta(string(runes[i:end]))
		}
	}
	return result, nil
}

// ListModels returns the configured model ids, sorted.
func (c *MockClient) ListModels(ctx context.Context) ([]string, error) {
	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	ids := append([]string(nil), c.Models...)
	sort.Strings(ids)
	return ids, nil
}

func (c *MockClient) doRequest(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.maxInFlight.Load()
		if cur <= peak || c.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	prompt := ""
	if n := len(req.Messages); n > 0 {
		prompt = req.Messages[n-1].Content
	}
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	if c.ShouldFail {
		return failed(result, start, fmt.Errorf("mock client configured to fail"))
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return failed(result, start, fmt.Errorf("mock client failed after %d requests", c.FailAfter))
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return failed(result, start, ctx.Err())
	}

	content := c.ResponseText
	if c.Respond != nil {
		var err error
		content, err = c.Respond(prompt)
		if err != nil {
			return failed(result, start, err)
		}
	}
	if content == "" {
		return failed(result, start, ErrEmptyResponse)
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	// Rough token counts
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (c *MockClient) MaxInFlight() int64 {
	return c.maxInFlight.Load()
}

// Prompts returns the last message of every request, in arrival order.
func (c *MockClient) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

// Reset resets the request counters.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.maxInFlight.Store(0)
	c.mu.Lock()
	c.prompts = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
