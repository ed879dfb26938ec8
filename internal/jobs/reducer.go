package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackzampolin/novelparser/internal/analysis"
	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/types"
)

// Summary cache layer of group summaries.
const groupLayer = 1

// ReducerConfig configures a Reducer.
type ReducerConfig struct {
	Store  NovelStore
	Model  Model
	Sink   progress.Sink
	Logger *slog.Logger

	LLM types.LLMConfig

	// GroupSize is the number of chapters per group summary. Defaults to 10.
	GroupSize int
}

// Reducer folds chapter analyses into a book summary in two levels: one
// call per group of chapters, then one call over the group summaries. A
// single group is parsed directly as the book summary.
type Reducer struct {
	store     NovelStore
	model     Model
	sink      progress.Sink
	logger    *slog.Logger
	groupSize int

	mu  sync.RWMutex
	llm types.LLMConfig
}

// NewReducer creates a Reducer.
func NewReducer(cfg ReducerConfig) (*Reducer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = DefaultGroupSize
	}
	return &Reducer{
		store:     cfg.Store,
		model:     cfg.Model,
		sink:      cfg.Sink,
		logger:    cfg.Logger,
		llm:       cfg.LLM,
		groupSize: cfg.GroupSize,
	}, nil
}

// Digests serializes the analyzed chapters of a novel in index order.
func Digests(chapters []*types.Chapter) ([]prompts.ChapterDigest, error) {
	var out []prompts.ChapterDigest
	for _, ch := range chapters {
		if ch.Analysis == nil {
			continue
		}
		raw, err := json.Marshal(ch.Analysis)
		if err != nil {
			return nil, fmt.Errorf("failed to encode analysis of chapter %d: %w", ch.ID, err)
		}
		out = append(out, prompts.ChapterDigest{Index: ch.Index, Analysis: string(raw)})
	}
	return out, nil
}

// Groups partitions digests into consecutive groups of at most size.
func Groups(digests []prompts.ChapterDigest, size int) [][]prompts.ChapterDigest {
	var out [][]prompts.ChapterDigest
	for start := 0; start < len(digests); start += size {
		end := min(start+size, len(digests))
		out = append(out, digests[start:end])
	}
	return out
}

// SetLLMConfig replaces the model configuration for summaries started later.
func (r *Reducer) SetLLMConfig(cfg types.LLMConfig) {
	r.mu.Lock()
	r.llm = cfg
	r.mu.Unlock()
}

func (r *Reducer) llmConfig() types.LLMConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm
}

// Summarize builds, persists and returns the novel's summary, replacing any
// previous one.
func (r *Reducer) Summarize(ctx context.Context, novelID string) (*types.NovelSummary, error) {
	novel, err := r.store.GetNovel(ctx, novelID)
	if err != nil {
		return nil, err
	}
	chapters, err := r.store.LoadAllChapters(ctx, novelID)
	if err != nil {
		return nil, err
	}
	digests, err := Digests(chapters)
	if err != nil {
		return nil, err
	}
	if len(digests) == 0 {
		return nil, fmt.Errorf("summarize %s: %w", novelID, ErrNoAnalyzedChapters)
	}
	dims := novel.EnabledDimensions
	cfg := r.llmConfig()
	logger := r.logger.With("novel_id", novelID)

	r.emit(novelID, types.StatusSummarizing, 0, 100, "准备生成全书汇总...")

	groups := Groups(digests, r.groupSize)
	total := len(groups) + 1
	if err := r.store.ClearSummaryCache(ctx, novelID); err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(groups))
	for i, group := range groups {
		r.emit(novelID, types.StatusSummarizing, i+1, total, fmt.Sprintf("正在合并阶段汇总 (%d/%d)", i+1, len(groups)))
		logger.Info("summarizing group", "group", i, "chapters", len(group))

		raw, err := r.model.Call(ctx, cfg, llmcall.Request{
			Prompt:    prompts.GroupSummaryPrompt(group, dims),
			PromptKey: prompts.GroupSummaryKey,
			NovelID:   novelID,
		})
		if err != nil {
			return nil, fmt.Errorf("group %d/%d: %w", i+1, len(groups), err)
		}
		text := analysis.Clean(raw)
		summaries = append(summaries, text)

		// The cache only preserves partial progress; losing it is not fatal.
		if err := r.store.SaveSummaryCache(ctx, novelID, groupLayer, i, text); err != nil {
			logger.Warn("failed to cache group summary", "group", i, "error", err)
		}
	}

	r.emit(novelID, types.StatusSummarizing, total, total, "正在生成终极全书汇总...")

	var summary *types.NovelSummary
	if len(summaries) == 1 {
		summary, err = analysis.ParseSummary(summaries[0])
	} else {
		var raw string
		raw, err = r.model.Call(ctx, cfg, llmcall.Request{
			Prompt:    prompts.FinalSummaryPrompt(summaries, dims),
			PromptKey: prompts.FinalSummaryKey,
			NovelID:   novelID,
		})
		if err != nil {
			return nil, fmt.Errorf("final summary: %w", err)
		}
		summary, err = analysis.ParseSummary(raw)
	}
	if err != nil {
		return nil, err
	}

	if err := r.store.SaveNovelSummary(ctx, novelID, summary); err != nil {
		return nil, err
	}
	r.emit(novelID, types.StatusDone, 100, 100, "全书汇总完成")
	logger.Info("novel summary saved", "groups", len(groups))
	return summary, nil
}

func (r *Reducer) emit(novelID, status string, current, total int, msg string) {
	r.sink.Progress(types.ProgressEvent{
		NovelID: novelID,
		Status:  status,
		Current: current,
		Total:   total,
		Message: msg,
	})
}
