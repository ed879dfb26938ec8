package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/types"
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Runner *Runner
	Store  NovelStore
	Sink   progress.Sink
	Logger *slog.Logger

	// Concurrency caps parallel chapter analyses. Defaults to 3.
	Concurrency int

	// Cancel is shared with whoever may cancel a batch. A new flag is
	// created when nil.
	Cancel *CancelFlag
}

// ErrBatchRunning is returned when a batch is started while another one
// holds the scheduler.
var ErrBatchRunning = errors.New("another batch is running")

// BatchResult describes how a batch ended.
type BatchResult struct {
	Completed int  `json:"completed" yaml:"completed"`
	Total     int  `json:"total" yaml:"total"`
	Cancelled bool `json:"cancelled" yaml:"cancelled"`
}

// Scheduler runs chapter analyses with bounded parallelism and cooperative
// cancellation. It runs one batch at a time; every chapter analysis it
// starts, batched or not, holds one of its Concurrency slots.
type Scheduler struct {
	runner      *Runner
	store       NovelStore
	sink        progress.Sink
	logger      *slog.Logger
	concurrency int
	slots       *semaphore.Weighted
	cancel      *CancelFlag

	mu     sync.Mutex
	active string // novel of the running batch, "" when idle
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Cancel == nil {
		cfg.Cancel = &CancelFlag{}
	}
	return &Scheduler{
		runner:      cfg.Runner,
		store:       cfg.Store,
		sink:        cfg.Sink,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
		slots:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		cancel:      cfg.Cancel,
	}, nil
}

// Cancel requests cancellation of whatever batch is running. With no batch
// running it arms the flag for the next batch that does not reset it.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel.Cancel()
}

// CancelNovel requests cancellation of the running batch only if it belongs
// to novelID, and reports whether it did.
func (s *Scheduler) CancelNovel(novelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if novelID == "" || s.active != novelID {
		return false
	}
	s.cancel.Cancel()
	return true
}

// Running returns the novel whose batch is running.
func (s *Scheduler) Running() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// CancelFlag returns the scheduler's cancellation flag.
func (s *Scheduler) CancelFlag() *CancelFlag {
	return s.cancel
}

func (s *Scheduler) begin(novelID string, reset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		return fmt.Errorf("analyze %s: %w (novel %s)", novelID, ErrBatchRunning, s.active)
	}
	s.active = novelID
	if reset {
		s.cancel.Reset()
	}
	return nil
}

// end releases the batch. A cancel that arrived after the batch stopped
// dispatching is dropped rather than left for the next batch.
func (s *Scheduler) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
	s.cancel.Reset()
}

// AnalyzeChapter analyzes one chapter outside any batch. It waits for a
// free slot, so it counts against the same cap as batch jobs.
func (s *Scheduler) AnalyzeChapter(ctx context.Context, chapterID int64, dims []types.AnalysisDimension) (*types.ChapterAnalysis, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)
	return s.runner.Analyze(ctx, chapterID, dims)
}

// AnalyzeUnanalyzed analyzes every chapter of the novel without an analysis,
// using the novel's enabled dimensions.
func (s *Scheduler) AnalyzeUnanalyzed(ctx context.Context, novelID string) (*BatchResult, error) {
	novel, metas, err := s.load(ctx, novelID)
	if err != nil {
		return nil, err
	}
	var pending []types.ChapterMeta
	for _, m := range metas {
		if !m.HasAnalysis {
			pending = append(pending, m)
		}
	}
	return s.run(ctx, novelID, pending, novel.EnabledDimensions, false)
}

// AnalyzeSelected analyzes the listed chapters of the novel. Ids not in the
// novel are ignored. The cancel flag is cleared first.
func (s *Scheduler) AnalyzeSelected(ctx context.Context, novelID string, chapterIDs []int64) (*BatchResult, error) {
	novel, metas, err := s.load(ctx, novelID)
	if err != nil {
		return nil, err
	}
	want := make(map[int64]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		want[id] = true
	}
	var selected []types.ChapterMeta
	for _, m := range metas {
		if want[m.ID] {
			selected = append(selected, m)
		}
	}
	if len(selected) == 0 {
		return &BatchResult{}, nil
	}
	return s.run(ctx, novelID, selected, novel.EnabledDimensions, true)
}

func (s *Scheduler) load(ctx context.Context, novelID string) (*types.Novel, []types.ChapterMeta, error) {
	novel, err := s.store.GetNovel(ctx, novelID)
	if err != nil {
		return nil, nil, err
	}
	metas, err := s.store.ListChapterMetas(ctx, novelID)
	if err != nil {
		return nil, nil, err
	}
	return novel, metas, nil
}

// Run analyzes chapters with at most Concurrency in flight. It fails with
// ErrBatchRunning while another batch runs.
//
// The cancel flag is checked each time a slot frees up, before the next
// dispatch. Once it is seen, nothing new is dispatched, running jobs
// finish, the flag is cleared and a batch_cancelled event is emitted; the
// result is Cancelled with a nil error. The first failure also stops
// dispatch, and its error is returned after running jobs finish.
// batch_done is emitted only when every chapter completed.
func (s *Scheduler) Run(ctx context.Context, novelID string, chapters []types.ChapterMeta, dims []types.AnalysisDimension) (*BatchResult, error) {
	return s.run(ctx, novelID, chapters, dims, false)
}

func (s *Scheduler) run(ctx context.Context, novelID string, chapters []types.ChapterMeta, dims []types.AnalysisDimension, reset bool) (*BatchResult, error) {
	total := len(chapters)
	if total == 0 {
		return &BatchResult{}, nil
	}
	if err := s.begin(novelID, reset); err != nil {
		return nil, err
	}
	defer s.end()

	var (
		completed atomic.Int64
		failed    atomic.Bool
		cancelled bool
		g         errgroup.Group
	)

	s.logger.Info("batch started", "novel_id", novelID, "chapters", total, "concurrency", s.concurrency)

	for _, meta := range chapters {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			break
		}
		if failed.Load() || ctx.Err() != nil {
			s.slots.Release(1)
			break
		}
		if s.cancel.Cancelled() {
			s.slots.Release(1)
			cancelled = true
			break
		}

		meta := meta
		g.Go(func() error {
			defer s.slots.Release(1)

			done := int(completed.Load())
			s.emit(novelID, &meta.ID, types.StatusBatchAnalyzing, done, total,
				fmt.Sprintf("派发任务: %s (已完成 %d/%d)", meta.Title, done, total))

			if _, err := s.runner.Analyze(ctx, meta.ID, dims); err != nil {
				failed.Store(true)
				done := int(completed.Load())
				s.emit(novelID, &meta.ID, types.StatusError, done, total,
					fmt.Sprintf("分析 %s 失败: %v", meta.Title, err))
				return fmt.Errorf("analyze chapter %d (%s): %w", meta.ID, meta.Title, err)
			}

			done = int(completed.Add(1))
			s.emit(novelID, &meta.ID, types.StatusChapterDone, done, total,
				fmt.Sprintf("已完成: %s (总计 %d/%d)", meta.Title, done, total))
			return nil
		})
	}

	err := g.Wait()
	result := &BatchResult{Completed: int(completed.Load()), Total: total}
	if err != nil {
		s.logger.Warn("batch failed", "novel_id", novelID, "completed", result.Completed, "error", err)
		return result, err
	}
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if cancelled {
		s.cancel.Reset()
		result.Cancelled = true
		s.emit(novelID, nil, types.StatusBatchCancelled, result.Completed, total,
			fmt.Sprintf("批量分析已取消 (%d/%d)", result.Completed, total))
		s.logger.Info("batch cancelled", "novel_id", novelID, "completed", result.Completed, "total", total)
		return result, nil
	}

	s.emit(novelID, nil, types.StatusBatchDone, total, total, "批量分析完成")
	s.logger.Info("batch done", "novel_id", novelID, "chapters", total)
	return result, nil
}

func (s *Scheduler) emit(novelID string, chapterID *int64, status string, current, total int, msg string) {
	var ref *int64
	if chapterID != nil {
		ref = types.ChapterRef(*chapterID)
	}
	s.sink.Progress(types.ProgressEvent{
		NovelID:   novelID,
		ChapterID: ref,
		Status:    status,
		Current:   current,
		Total:     total,
		Message:   msg,
	})
}
