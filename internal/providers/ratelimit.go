package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing requests and keeps wait statistics.
// A zero rate never blocks.
type RateLimiter struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	totalConsumed int64
	totalWaited   time.Duration
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with a burst of one.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.totalConsumed++
	r.totalWaited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	rps := float64(r.limiter.Limit())
	if r.limiter.Limit() == rate.Inf {
		rps = 0
	}
	return RateLimiterStatus{
		RequestsPerSecond: rps,
		TotalConsumed:     r.totalConsumed,
		TotalWaited:       r.totalWaited,
	}
}
