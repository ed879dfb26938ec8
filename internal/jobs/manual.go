package jobs

import (
	"context"
	"fmt"

	"github.com/jackzampolin/novelparser/internal/analysis"
	"github.com/jackzampolin/novelparser/internal/prompts"
	"github.com/jackzampolin/novelparser/internal/tokens"
	"github.com/jackzampolin/novelparser/internal/types"
)

// ManualPrompt is a chapter prompt for a user to run through a model
// themselves.
type ManualPrompt struct {
	ChapterID int64  `json:"chapter_id" yaml:"chapter_id"`
	Prompt    string `json:"prompt" yaml:"prompt"`
	Tokens    int    `json:"tokens" yaml:"tokens"`
}

// ChapterManualPrompt renders the whole-chapter prompt and its estimate.
// Empty dims select the default dimensions.
func ChapterManualPrompt(ctx context.Context, store ChapterStore, chapterID int64, dims []types.AnalysisDimension) (*ManualPrompt, error) {
	ch, err := store.LoadChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		dims = types.DefaultDimensions()
	}
	prompt := prompts.ChapterPrompt(ch.Title, ch.Content, types.Normalize(dims))
	return &ManualPrompt{ChapterID: chapterID, Prompt: prompt, Tokens: tokens.Estimate(prompt)}, nil
}

// ApplyManualResult parses a pasted model response and saves it as the
// chapter's analysis.
func ApplyManualResult(ctx context.Context, store ChapterStore, chapterID int64, raw string) (*types.ChapterAnalysis, error) {
	a, err := analysis.ParseAnalysis(raw)
	if err != nil {
		return nil, err
	}
	if err := store.SaveChapterAnalysis(ctx, chapterID, a); err != nil {
		return nil, fmt.Errorf("failed to save analysis of chapter %d: %w", chapterID, err)
	}
	return a, nil
}

// SummaryManualPrompt renders the one-shot book summary prompt over every
// analyzed chapter of the novel.
func SummaryManualPrompt(ctx context.Context, store NovelStore, novelID string) (string, error) {
	novel, err := store.GetNovel(ctx, novelID)
	if err != nil {
		return "", err
	}
	chapters, err := store.LoadAllChapters(ctx, novelID)
	if err != nil {
		return "", err
	}
	digests, err := Digests(chapters)
	if err != nil {
		return "", err
	}
	if len(digests) == 0 {
		return "", fmt.Errorf("summary prompt for %s: %w", novelID, ErrNoAnalyzedChapters)
	}
	return prompts.ManualSummaryPrompt(digests, novel.EnabledDimensions), nil
}
