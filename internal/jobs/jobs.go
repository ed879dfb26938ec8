// Package jobs drives chapter analysis and the book summary: the per-chapter
// runner, the bounded batch scheduler, and the hierarchical summary reducer.
package jobs

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/types"
)

// ErrNoAnalyzedChapters is returned by the reducer when a novel has no
// chapter with an analysis.
var ErrNoAnalyzedChapters = errors.New("no analyzed chapters")

// Defaults.
const (
	DefaultConcurrency      = 3
	DefaultGroupSize        = 10
	DefaultTemplateOverhead = 500
)

// Model sends prompts to the language model. *llmcall.Caller implements it.
type Model interface {
	Call(ctx context.Context, cfg types.LLMConfig, req llmcall.Request) (string, error)
	Stream(ctx context.Context, cfg types.LLMConfig, req llmcall.Request, onChunk func(types.StreamChunk)) (string, error)
}

// ChapterStore is the storage the runner needs.
type ChapterStore interface {
	LoadChapter(ctx context.Context, id int64) (*types.Chapter, error)
	SaveChapterAnalysis(ctx context.Context, id int64, analysis *types.ChapterAnalysis) error
}

// NovelStore is the storage the scheduler and reducer need.
type NovelStore interface {
	GetNovel(ctx context.Context, id string) (*types.Novel, error)
	ListChapterMetas(ctx context.Context, novelID string) ([]types.ChapterMeta, error)
	LoadAllChapters(ctx context.Context, novelID string) ([]*types.Chapter, error)
	SaveNovelSummary(ctx context.Context, novelID string, summary *types.NovelSummary) error
	SaveSummaryCache(ctx context.Context, novelID string, layer, groupIndex int, content string) error
	ClearSummaryCache(ctx context.Context, novelID string) error
}

// CancelFlag is the shared batch cancellation signal. Setting it stops the
// dispatch of new chapter jobs; jobs already running finish normally.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel requests cancellation of the running batch.
func (f *CancelFlag) Cancel() { f.v.Store(true) }

// Reset clears the flag.
func (f *CancelFlag) Reset() { f.v.Store(false) }

// Cancelled reports whether cancellation was requested.
func (f *CancelFlag) Cancelled() bool { return f.v.Load() }
