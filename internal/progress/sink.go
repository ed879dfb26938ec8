// Package progress delivers pipeline progress to presentation layers.
//
// Delivery is best-effort: sinks have no error return, and a sink that
// cannot deliver drops the event.
package progress

import (
	"log/slog"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Sink receives progress events and streamed model output.
// Implementations must be safe for concurrent use.
type Sink interface {
	Progress(ev types.ProgressEvent)
	Chunk(c types.StreamChunk)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Progress(types.ProgressEvent) {}
func (discard) Chunk(types.StreamChunk)      {}

// Funcs adapts plain functions to a Sink. Nil fields are skipped.
type Funcs struct {
	OnProgress func(types.ProgressEvent)
	OnChunk    func(types.StreamChunk)
}

func (f Funcs) Progress(ev types.ProgressEvent) {
	if f.OnProgress != nil {
		f.OnProgress(ev)
	}
}

func (f Funcs) Chunk(c types.StreamChunk) {
	if f.OnChunk != nil {
		f.OnChunk(c)
	}
}

// Multi fans out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multi []Sink

func (m multi) Progress(ev types.ProgressEvent) {
	for _, s := range m {
		s.Progress(ev)
	}
}

func (m multi) Chunk(c types.StreamChunk) {
	for _, s := range m {
		s.Chunk(c)
	}
}

// LogSink mirrors progress events to a logger. Errors log at warn level,
// everything else at debug. Stream chunks are not logged.
type LogSink struct {
	Logger *slog.Logger
}

// NewLogSink creates a LogSink, defaulting to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

func (l *LogSink) Progress(ev types.ProgressEvent) {
	attrs := []any{"novel_id", ev.NovelID, "status", ev.Status, "current", ev.Current, "total", ev.Total}
	if ev.ChapterID != nil {
		attrs = append(attrs, "chapter_id", *ev.ChapterID)
	}
	if ev.Status == types.StatusError {
		l.Logger.Warn(ev.Message, attrs...)
		return
	}
	l.Logger.Debug(ev.Message, attrs...)
}

func (l *LogSink) Chunk(types.StreamChunk) {}
