package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/novelparser/internal/types"
)

// NewChapter is a chapter to add to a novel.
type NewChapter struct {
	Title   string
	Content string
}

// CreateNovel inserts a novel with its chapters in index order. A new id is
// assigned when novel.ID is empty; nil dimensions fall back to the defaults.
func (s *Store) CreateNovel(ctx context.Context, novel *types.Novel, chapters []NewChapter) error {
	if novel.ID == "" {
		novel.ID = uuid.New().String()
	}
	if novel.CreatedAt.IsZero() {
		novel.CreatedAt = time.Now().UTC()
	}
	if novel.EnabledDimensions == nil {
		novel.EnabledDimensions = types.DefaultDimensions()
	}
	dims, err := json.Marshal(novel.EnabledDimensions)
	if err != nil {
		return fmt.Errorf("failed to encode dimensions: %w", err)
	}

	return s.inTx(ctx, "create novel", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO novels (id, title, source, enabled_dimensions, created_at) VALUES (?, ?, ?, ?, ?)`,
			novel.ID, novel.Title, novel.Source, string(dims), formatTime(novel.CreatedAt),
		); err != nil {
			return err
		}
		return insertChapters(ctx, tx, novel.ID, 0, chapters)
	})
}

// AddChapters appends chapters after the novel's current last index and
// returns their ids.
func (s *Store) AddChapters(ctx context.Context, novelID string, chapters []NewChapter) ([]int64, error) {
	var ids []int64
	err := s.inTx(ctx, "add chapters", func(tx *sql.Tx) error {
		ids = nil
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM novels WHERE id = ?`, novelID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		var next sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(chapter_index) + 1 FROM chapters WHERE novel_id = ?`, novelID,
		).Scan(&next); err != nil {
			return err
		}
		for i, ch := range chapters {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO chapters (novel_id, chapter_index, title, content) VALUES (?, ?, ?, ?)`,
				novelID, int(next.Int64)+i, ch.Title, ch.Content,
			)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func insertChapters(ctx context.Context, tx *sql.Tx, novelID string, start int, chapters []NewChapter) error {
	for i, ch := range chapters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chapters (novel_id, chapter_index, title, content) VALUES (?, ?, ?, ?)`,
			novelID, start+i, ch.Title, ch.Content,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetNovel loads one novel.
func (s *Store) GetNovel(ctx context.Context, id string) (*types.Novel, error) {
	var (
		n       types.Novel
		dims    string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source, enabled_dimensions, created_at FROM novels WHERE id = ?`, id,
	).Scan(&n.ID, &n.Title, &n.Source, &dims, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("novel %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load novel: %w", err)
	}
	n.CreatedAt = parseTime(created)
	n.EnabledDimensions = decodeDimensions(dims)
	return &n, nil
}

// decodeDimensions drops unknown values so a database written by a newer
// build still loads.
func decodeDimensions(raw string) []types.AnalysisDimension {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return []types.AnalysisDimension{}
	}
	dims := make([]types.AnalysisDimension, 0, len(names))
	for _, name := range names {
		if d, err := types.ParseDimension(name); err == nil {
			dims = append(dims, d)
		}
	}
	return dims
}

// ListNovels returns every novel, newest first, with chapter counts.
func (s *Store) ListNovels(ctx context.Context) ([]types.NovelMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.title, n.created_at,
		       COUNT(c.id) AS chapter_count,
		       COUNT(c.analysis) AS analyzed_count
		FROM novels n
		LEFT JOIN chapters c ON c.novel_id = n.id
		GROUP BY n.id
		ORDER BY n.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list novels: %w", err)
	}
	defer rows.Close()

	out := []types.NovelMeta{}
	for rows.Next() {
		var (
			m       types.NovelMeta
			created string
		)
		if err := rows.Scan(&m.ID, &m.Title, &created, &m.ChapterCount, &m.AnalyzedCount); err != nil {
			return nil, fmt.Errorf("failed to scan novel: %w", err)
		}
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateDimensions replaces the novel's enabled dimensions.
func (s *Store) UpdateDimensions(ctx context.Context, novelID string, dims []types.AnalysisDimension) error {
	raw, err := json.Marshal(types.Normalize(dims))
	if err != nil {
		return fmt.Errorf("failed to encode dimensions: %w", err)
	}
	return s.write(ctx, "update dimensions", func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE novels SET enabled_dimensions = ? WHERE id = ?`, string(raw), novelID)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

// DeleteNovel removes a novel and, by cascade, everything attached to it.
func (s *Store) DeleteNovel(ctx context.Context, id string) error {
	return s.write(ctx, "delete novel", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM novels WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
