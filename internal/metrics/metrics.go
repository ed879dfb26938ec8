// Package metrics aggregates recorded model calls into usage statistics.
package metrics

import (
	"context"
	"math"
	"sort"

	"github.com/jackzampolin/novelparser/internal/llmcall"
)

// maxCalls bounds how many recorded calls one query aggregates.
const maxCalls = 100000

// CallLister lists recorded calls. *store.Store implements it.
type CallLister interface {
	ListLLMCalls(ctx context.Context, filter llmcall.QueryFilter) ([]*llmcall.Call, error)
}

// Query computes statistics over recorded calls.
type Query struct {
	calls CallLister
}

// NewQuery creates a new metrics query helper.
func NewQuery(calls CallLister) *Query {
	return &Query{calls: calls}
}

// Summary provides a summary of calls matching a filter.
type Summary struct {
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`
	StreamCount  int `json:"stream_count" yaml:"stream_count"`

	// Token totals. Estimated is the local prompt estimate; input and
	// output are what the endpoint reported.
	EstimatedTokens int `json:"estimated_tokens" yaml:"estimated_tokens"`
	InputTokens     int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens    int `json:"output_tokens" yaml:"output_tokens"`

	// Latency in milliseconds, over calls that reported one.
	LatencyAvgMs float64 `json:"latency_avg_ms" yaml:"latency_avg_ms"`
	LatencyP50Ms int     `json:"latency_p50_ms" yaml:"latency_p50_ms"`
	LatencyP95Ms int     `json:"latency_p95_ms" yaml:"latency_p95_ms"`
	LatencyMaxMs int     `json:"latency_max_ms" yaml:"latency_max_ms"`
}

// Report is a summary plus breakdowns by prompt key and by model.
type Report struct {
	Summary     *Summary            `json:"summary" yaml:"summary"`
	ByPromptKey map[string]*Summary `json:"by_prompt_key" yaml:"by_prompt_key"`
	ByModel     map[string]*Summary `json:"by_model" yaml:"by_model"`
}

// GetReport aggregates every call matching the filter. Limit and offset in
// the filter are ignored.
func (q *Query) GetReport(ctx context.Context, f llmcall.QueryFilter) (*Report, error) {
	f.Limit = maxCalls
	f.Offset = 0
	calls, err := q.calls.ListLLMCalls(ctx, f)
	if err != nil {
		return nil, err
	}
	return Aggregate(calls), nil
}

// Aggregate builds a Report from calls.
func Aggregate(calls []*llmcall.Call) *Report {
	return &Report{
		Summary:     Summarize(calls),
		ByPromptKey: breakdown(calls, func(c *llmcall.Call) string { return c.PromptKey }),
		ByModel:     breakdown(calls, func(c *llmcall.Call) string { return c.Model }),
	}
}

func breakdown(calls []*llmcall.Call, key func(*llmcall.Call) string) map[string]*Summary {
	groups := make(map[string][]*llmcall.Call)
	for _, c := range calls {
		k := key(c)
		groups[k] = append(groups[k], c)
	}
	out := make(map[string]*Summary, len(groups))
	for k, g := range groups {
		out[k] = Summarize(g)
	}
	return out
}

// Summarize computes counts, token totals and latency statistics.
func Summarize(calls []*llmcall.Call) *Summary {
	s := &Summary{Count: len(calls)}
	var latencies []int
	for _, c := range calls {
		if c.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		if c.Streamed {
			s.StreamCount++
		}
		s.EstimatedTokens += c.EstimatedTokens
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		if c.LatencyMs > 0 {
			latencies = append(latencies, c.LatencyMs)
		}
	}
	if len(latencies) == 0 {
		return s
	}

	sort.Ints(latencies)
	total := 0
	for _, l := range latencies {
		total += l
	}
	s.LatencyAvgMs = float64(total) / float64(len(latencies))
	s.LatencyP50Ms = percentile(latencies, 50)
	s.LatencyP95Ms = percentile(latencies, 95)
	s.LatencyMaxMs = latencies[len(latencies)-1]
	return s
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []int, p float64) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
