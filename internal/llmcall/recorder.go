package llmcall

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/novelparser/internal/providers"
)

// Sink persists call records.
type Sink interface {
	InsertLLMCall(ctx context.Context, call *Call) error
}

// Recorder writes call records to a Sink. Failures are logged and never
// returned; recording must not fail a model call.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

// NewRecorder creates a new LLM call recorder. A nil sink disables recording.
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, logger: logger}
}

// Record captures a finished call.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil || r.sink == nil {
		return
	}
	r.RecordCall(FromChatResult(result, opts))
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.sink == nil || call == nil {
		return
	}
	// Detached from the caller's context so a cancelled batch still logs.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.sink.InsertLLMCall(ctx, call); err != nil {
		r.logger.Warn("failed to record LLM call", "id", call.ID, "prompt_key", call.PromptKey, "error", err)
	}
}
