package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackzampolin/novelparser/internal/llmcall"
)

var _ llmcall.Sink = (*Store)(nil)

// InsertLLMCall records one model call.
func (s *Store) InsertLLMCall(ctx context.Context, c *llmcall.Call) error {
	var chapter sql.NullInt64
	if c.ChapterID != nil {
		chapter = sql.NullInt64{Int64: *c.ChapterID, Valid: true}
	}
	return s.write(ctx, "insert llm call", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO llm_calls (
				id, timestamp, latency_ms, novel_id, chapter_id, prompt_key, prompt_hash,
				provider, model, temperature, streamed, estimated_tokens, input_tokens,
				output_tokens, response, success, error
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, formatTime(c.Timestamp), c.LatencyMs, c.NovelID, chapter, c.PromptKey, c.PromptHash,
			c.Provider, c.Model, c.Temperature, boolInt(c.Streamed), c.EstimatedTokens, c.InputTokens,
			c.OutputTokens, c.Response, boolInt(c.Success), c.Error,
		)
		return err
	})
}

// ListLLMCalls returns recorded calls matching filter, newest first.
// Limit defaults to 50.
func (s *Store) ListLLMCalls(ctx context.Context, filter llmcall.QueryFilter) ([]*llmcall.Call, error) {
	var (
		where []string
		args  []any
	)
	if filter.NovelID != "" {
		where = append(where, "novel_id = ?")
		args = append(args, filter.NovelID)
	}
	if filter.ChapterID != nil {
		where = append(where, "chapter_id = ?")
		args = append(args, *filter.ChapterID)
	}
	if filter.PromptKey != "" {
		where = append(where, "prompt_key = ?")
		args = append(args, filter.PromptKey)
	}
	if filter.Success != nil {
		where = append(where, "success = ?")
		args = append(args, boolInt(*filter.Success))
	}

	query := `SELECT id, timestamp, latency_ms, novel_id, chapter_id, prompt_key, prompt_hash,
		provider, model, temperature, streamed, estimated_tokens, input_tokens,
		output_tokens, response, success, error FROM llm_calls`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY timestamp DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list llm calls: %w", err)
	}
	defer rows.Close()

	var out []*llmcall.Call
	for rows.Next() {
		var (
			c         llmcall.Call
			ts        string
			chapter   sql.NullInt64
			streamed  int
			succeeded int
		)
		if err := rows.Scan(&c.ID, &ts, &c.LatencyMs, &c.NovelID, &chapter, &c.PromptKey, &c.PromptHash,
			&c.Provider, &c.Model, &c.Temperature, &streamed, &c.EstimatedTokens, &c.InputTokens,
			&c.OutputTokens, &c.Response, &succeeded, &c.Error); err != nil {
			return nil, fmt.Errorf("failed to scan llm call: %w", err)
		}
		c.Timestamp = parseTime(ts)
		if chapter.Valid {
			id := chapter.Int64
			c.ChapterID = &id
		}
		c.Streamed = streamed != 0
		c.Success = succeeded != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}
