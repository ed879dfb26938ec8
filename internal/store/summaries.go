package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Summary cache layers.
const (
	LayerGroup = 1
	LayerFinal = 2
)

// CacheEntry is one cached intermediate summary.
type CacheEntry struct {
	Layer      int    `json:"layer" yaml:"layer"`
	GroupIndex int    `json:"group_index" yaml:"group_index"`
	Content    string `json:"content" yaml:"content"`
}

// SaveNovelSummary replaces any prior summary of the novel.
func (s *Store) SaveNovelSummary(ctx context.Context, novelID string, summary *types.NovelSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return s.write(ctx, "save novel summary", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO novel_summaries (novel_id, summary) VALUES (?, ?)`, novelID, string(raw))
		return err
	})
}

// LoadSummary returns the novel's summary, or ErrNotFound.
func (s *Store) LoadSummary(ctx context.Context, novelID string) (*types.NovelSummary, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM novel_summaries WHERE novel_id = ?`, novelID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", novelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	var summary types.NovelSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// ClearSummary deletes the novel's summary.
func (s *Store) ClearSummary(ctx context.Context, novelID string) error {
	return s.write(ctx, "clear novel summary", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM novel_summaries WHERE novel_id = ?`, novelID)
		return err
	})
}

// SaveSummaryCache stores one intermediate summary.
func (s *Store) SaveSummaryCache(ctx context.Context, novelID string, layer, groupIndex int, content string) error {
	return s.write(ctx, "save summary cache", func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO summary_cache (novel_id, layer, group_index, content) VALUES (?, ?, ?, ?)`,
			novelID, layer, groupIndex, content)
		return err
	})
}

// LoadSummaryCache returns cached summaries ordered by layer and group.
func (s *Store) LoadSummaryCache(ctx context.Context, novelID string) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT layer, group_index, content FROM summary_cache
		 WHERE novel_id = ? ORDER BY layer, group_index, id`, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary cache: %w", err)
	}
	defer rows.Close()

	var out []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.Layer, &e.GroupIndex, &e.Content); err != nil {
			return nil, fmt.Errorf("failed to scan summary cache: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearSummaryCache drops every cached summary of the novel.
func (s *Store) ClearSummaryCache(ctx context.Context, novelID string) error {
	return s.write(ctx, "clear summary cache", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM summary_cache WHERE novel_id = ?`, novelID)
		return err
	})
}
