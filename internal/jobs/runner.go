package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackzampolin/novelparser/internal/analysis"
	"github.com/jackzampolin/novelparser/internal/llmcall"
	"github.com/jackzampolin/novelparser/internal/merge"
	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/tokens"
	"github.com/jackzampolin/novelparser/internal/types"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Store  ChapterStore
	Model  Model
	Sink   progress.Sink
	Logger *slog.Logger

	LLM types.LLMConfig

	// TemplateOverhead is the token allowance for instructions and schema
	// when computing the per-segment content budget. Defaults to 500.
	TemplateOverhead int

	// Stream sends requests as streaming calls and forwards the chunks
	// to Sink.
	Stream bool
}

// Runner analyzes one chapter at a time. It is safe for concurrent use;
// analyses of the same chapter are serialized.
type Runner struct {
	store    ChapterStore
	model    Model
	sink     progress.Sink
	logger   *slog.Logger
	overhead int
	stream   bool

	mu  sync.RWMutex
	llm types.LLMConfig

	locks sync.Map // chapter id -> *sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
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
	if cfg.TemplateOverhead <= 0 {
		cfg.TemplateOverhead = DefaultTemplateOverhead
	}
	return &Runner{
		store:    cfg.Store,
		model:    cfg.Model,
		sink:     cfg.Sink,
		logger:   cfg.Logger,
		overhead: cfg.TemplateOverhead,
		stream:   cfg.Stream,
		llm:      cfg.LLM,
	}, nil
}

// LLMConfig returns the model configuration in use.
func (r *Runner) LLMConfig() types.LLMConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm
}

// SetLLMConfig replaces the model configuration for chapters started later.
func (r *Runner) SetLLMConfig(cfg types.LLMConfig) {
	r.mu.Lock()
	r.llm = cfg
	r.mu.Unlock()
}

// Plan is how a chapter will be sent to the model.
type Plan struct {
	// Prompt is the whole-chapter prompt and PromptTokens its estimate.
	Prompt       string
	PromptTokens int
	// Available is the budget the whole prompt is checked against.
	Available int
	// Segments is nil when the whole prompt fits; otherwise the content
	// split against ContentBudget.
	Segments      []string
	ContentBudget int
}

// Segmented reports whether the chapter needs one call per segment.
func (p *Plan) Segmented() bool {
	return p.Segments != nil
}

// PlanChapter decides between a single whole-chapter call and segmentation.
func PlanChapter(cfg types.LLMConfig, templateOverhead int, ch *types.Chapter, dims []types.AnalysisDimension) *Plan {
	prompt := prompts.ChapterPrompt(ch.Title, ch.Content, dims)
	p := &Plan{
		Prompt:       prompt,
		PromptTokens: tokens.Estimate(prompt),
		Available:    tokens.AvailableFor(cfg, 0),
	}
	if p.PromptTokens <= p.Available {
		return p
	}
	p.ContentBudget = tokens.AvailableFor(cfg, templateOverhead)
	p.Segments = tokens.Split(ch.Content, p.ContentBudget)
	return p
}

func (r *Runner) lock(chapterID int64) func() {
	v, _ := r.locks.LoadOrStore(chapterID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Analyze runs the chapter through the model, persists the result and
// returns it. Nothing is persisted when any call or parse fails. Empty dims
// select the default dimensions.
func (r *Runner) Analyze(ctx context.Context, chapterID int64, dims []types.AnalysisDimension) (*types.ChapterAnalysis, error) {
	unlock := r.lock(chapterID)
	defer unlock()

	ch, err := r.store.LoadChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	cfg := r.LLMConfig()
	dims = types.Normalize(dims)
	if len(dims) == 0 {
		dims = types.DefaultDimensions()
	}
	plan := PlanChapter(cfg, r.overhead, ch, dims)
	logger := r.logger.With("novel_id", ch.NovelID, "chapter_id", chapterID)

	var result *types.ChapterAnalysis
	if plan.Segmented() {
		logger.Info("chapter exceeds budget, analyzing in segments",
			"tokens", plan.PromptTokens, "budget", plan.Available, "segments", len(plan.Segments))
		result, err = r.analyzeSegments(ctx, cfg, ch, plan.Segments, dims)
	} else {
		r.emit(ch, types.StatusAnalyzing, 0, 1, "正在生成分析...")
		result, err = r.analyzeWhole(ctx, cfg, ch, plan.Prompt)
	}
	if err != nil {
		return nil, err
	}

	if err := r.store.SaveChapterAnalysis(ctx, chapterID, result); err != nil {
		return nil, fmt.Errorf("failed to save analysis of chapter %d: %w", chapterID, err)
	}
	logger.Info("chapter analyzed", "dimensions", len(result.Present()))
	return result, nil
}

func (r *Runner) analyzeWhole(ctx context.Context, cfg types.LLMConfig, ch *types.Chapter, prompt string) (*types.ChapterAnalysis, error) {
	raw, err := r.send(ctx, cfg, ch, prompts.ChapterKey, prompt)
	if err != nil {
		return nil, err
	}
	result, err := analysis.ParseAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("chapter %d: %w", ch.ID, err)
	}
	r.emit(ch, types.StatusAnalyzing, 1, 1, "分析完成")
	return result, nil
}

// analyzeSegments calls the model for each segment in order and merges
// the parsed results.
func (r *Runner) analyzeSegments(ctx context.Context, cfg types.LLMConfig, ch *types.Chapter, segments []string, dims []types.AnalysisDimension) (*types.ChapterAnalysis, error) {
	total := len(segments)
	parsed := make([]*types.ChapterAnalysis, 0, total)
	for i, seg := range segments {
		r.emit(ch, types.StatusAnalyzingSegment, i+1, total, fmt.Sprintf("正在分析分段 %d/%d...", i+1, total))

		prompt := prompts.SegmentPrompt(ch.Title, seg, i, total, dims)
		raw, err := r.send(ctx, cfg, ch, prompts.SegmentKey, prompt)
		if err != nil {
			return nil, fmt.Errorf("segment %d/%d: %w", i+1, total, err)
		}
		a, err := analysis.ParseAnalysis(raw)
		if err != nil {
			return nil, fmt.Errorf("chapter %d segment %d/%d: %w", ch.ID, i+1, total, err)
		}
		parsed = append(parsed, a)
	}

	r.emit(ch, types.StatusMergingSegments, total, total, "正在汇总分段分析...")
	return merge.Segments(parsed), nil
}

func (r *Runner) send(ctx context.Context, cfg types.LLMConfig, ch *types.Chapter, key, prompt string) (string, error) {
	req := llmcall.Request{
		Prompt:    prompt,
		PromptKey: key,
		NovelID:   ch.NovelID,
		ChapterID: types.ChapterRef(ch.ID),
	}
	if !r.stream {
		return r.model.Call(ctx, cfg, req)
	}

	started := false
	return r.model.Stream(ctx, cfg, req, func(c types.StreamChunk) {
		if !started {
			started = true
			r.emit(ch, types.StatusStreaming, 0, 0, "正在接收模型输出...")
		}
		r.sink.Chunk(c)
	})
}

func (r *Runner) emit(ch *types.Chapter, status string, current, total int, msg string) {
	r.sink.Progress(types.ProgressEvent{
		NovelID:   ch.NovelID,
		ChapterID: types.ChapterRef(ch.ID),
		Status:    status,
		Current:   current,
		Total:     total,
		Message:   msg,
	})
}
