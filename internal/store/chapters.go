package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/novelparser/internal/types"
)

// LoadChapter loads a chapter with its content and analysis.
func (s *Store) LoadChapter(ctx context.Context, id int64) (*types.Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, novel_id, chapter_index, title, content, analysis FROM chapters WHERE id = ?`, id)
	ch, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chapter %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter %d: %w", id, err)
	}
	return ch, nil
}

// LoadAllChapters loads every chapter of a novel in index order.
func (s *Store) LoadAllChapters(ctx context.Context, novelID string) ([]*types.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, novel_id, chapter_index, title, content, analysis
		 FROM chapters WHERE novel_id = ? ORDER BY chapter_index`, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapters: %w", err)
	}
	defer rows.Close()

	var out []*types.Chapter
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanChapter treats an undecodable analysis as absent.
func scanChapter(row scanner) (*types.Chapter, error) {
	var (
		ch       types.Chapter
		analysis sql.NullString
	)
	if err := row.Scan(&ch.ID, &ch.NovelID, &ch.Index, &ch.Title, &ch.Content, &analysis); err != nil {
		return nil, err
	}
	if analysis.Valid {
		var a types.ChapterAnalysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err == nil {
			ch.Analysis = &a
		}
	}
	return &ch, nil
}

// ListChapterMetas lists a novel's chapters without content. The token
// estimate is a quick 1.5 per character upper bound.
func (s *Store) ListChapterMetas(ctx context.Context, novelID string) ([]types.ChapterMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chapter_index, title, analysis IS NOT NULL, LENGTH(content)
		 FROM chapters WHERE novel_id = ? ORDER BY chapter_index`, novelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	out := []types.ChapterMeta{}
	for rows.Next() {
		var (
			m      types.ChapterMeta
			length int
		)
		if err := rows.Scan(&m.ID, &m.Index, &m.Title, &m.HasAnalysis, &length); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		m.TokenEstimate = length * 3 / 2
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveChapterAnalysis replaces the chapter's analysis.
func (s *Store) SaveChapterAnalysis(ctx context.Context, id int64, analysis *types.ChapterAnalysis) error {
	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	return s.write(ctx, "save chapter analysis", func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE chapters SET analysis = ? WHERE id = ?`, string(raw), id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// ClearAnalysis removes a chapter's analysis.
func (s *Store) ClearAnalysis(ctx context.Context, id int64) error {
	return s.write(ctx, "clear chapter analysis", func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE chapters SET analysis = NULL WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// DeleteChapters removes chapters in one transaction. Unknown ids are ignored.
func (s *Store) DeleteChapters(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.inTx(ctx, "delete chapters", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id IN (`+placeholders+`)`, args...)
		return err
	})
}
