// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store     *store.Store
	Runner    *jobs.Runner
	Scheduler *jobs.Scheduler
	Reducer   *jobs.Reducer
	Caller    *llmcall.Caller
	Hub       *progress.Hub
	Logger    *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// RunnerFrom extracts the chapter runner from context.
func RunnerFrom(ctx context.Context) *jobs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// SchedulerFrom extracts the batch scheduler from context.
func SchedulerFrom(ctx context.Context) *jobs.Scheduler {
	if s := ServicesFrom(ctx); s != nil {
		return s.Scheduler
	}
	return nil
}

// ReducerFrom extracts the summary reducer from context.
func ReducerFrom(ctx context.Context) *jobs.Reducer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Reducer
	}
	return nil
}

// CallerFrom extracts the model caller from context.
func CallerFrom(ctx context.Context) *llmcall.Caller {
	if s := ServicesFrom(ctx); s != nil {
		return s.Caller
	}
	return nil
}

// HubFrom extracts the websocket progress hub from context.
func HubFrom(ctx context.Context) *progress.Hub {
	if s := ServicesFrom(ctx); s != nil {
		return s.Hub
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
