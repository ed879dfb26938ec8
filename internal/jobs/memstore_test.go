package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jackzampolin/novelparser/internal/types"
)

// memStore is an in-memory NovelStore for pipeline tests.
type memStore struct {
	mu        sync.Mutex
	novels    map[string]*types.Novel
	chapters  map[int64]*types.Chapter
	summaries map[string]*types.NovelSummary
	cache     map[string][]string
	saves     int
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{
		novels:    map[string]*types.Novel{},
		chapters:  map[int64]*types.Chapter{},
		summaries: map[string]*types.NovelSummary{},
		cache:     map[string][]string{},
	}
}

// addNovel stores a novel with one chapter per content string and returns
// the chapter ids in index order.
func (s *memStore) addNovel(id string, dims []types.AnalysisDimension, contents ...string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.novels[id] = &types.Novel{ID: id, Title: id, EnabledDimensions: dims}
	var ids []int64
	for i, c := range contents {
		s.nextID++
		s.chapters[s.nextID] = &types.Chapter{
			ID:      s.nextID,
			NovelID: id,
			Index:   i,
			Title:   fmt.Sprintf("第%d章", i+1),
			Content: c,
		}
		ids = append(ids, s.nextID)
	}
	return ids
}

func clone(a *types.ChapterAnalysis) *types.ChapterAnalysis {
	if a == nil {
		return nil
	}
	raw, _ := json.Marshal(a)
	var out types.ChapterAnalysis
	json.Unmarshal(raw, &out)
	return &out
}

func (s *memStore) LoadChapter(ctx context.Context, id int64) (*types.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chapters[id]
	if !ok {
		return nil, fmt.Errorf("chapter %d not found", id)
	}
	out := *ch
	out.Analysis = clone(ch.Analysis)
	return &out, nil
}

func (s *memStore) SaveChapterAnalysis(ctx context.Context, id int64, a *types.ChapterAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chapters[id]
	if !ok {
		return fmt.Errorf("chapter %d not found", id)
	}
	ch.Analysis = clone(a)
	s.saves++
	return nil
}

func (s *memStore) GetNovel(ctx context.Context, id string) (*types.Novel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.novels[id]
	if !ok {
		return nil, fmt.Errorf("novel %s not found", id)
	}
	out := *n
	return &out, nil
}

func (s *memStore) sorted(novelID string) []*types.Chapter {
	var out []*types.Chapter
	for _, ch := range s.chapters {
		if ch.NovelID == novelID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *memStore) ListChapterMetas(ctx context.Context, novelID string) ([]types.ChapterMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.ChapterMeta
	for _, ch := range s.sorted(novelID) {
		out = append(out, types.ChapterMeta{ID: ch.ID, Index: ch.Index, Title: ch.Title, HasAnalysis: ch.Analysis != nil})
	}
	return out, nil
}

func (s *memStore) LoadAllChapters(ctx context.Context, novelID string) ([]*types.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Chapter
	for _, ch := range s.sorted(novelID) {
		c := *ch
		c.Analysis = clone(ch.Analysis)
		out = append(out, &c)
	}
	return out, nil
}

func (s *memStore) SaveNovelSummary(ctx context.Context, novelID string, summary *types.NovelSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[novelID] = summary
	return nil
}

func (s *memStore) SaveSummaryCache(ctx context.Context, novelID string, layer, groupIndex int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[novelID] = append(s.cache[novelID], content)
	return nil
}

func (s *memStore) ClearSummaryCache(ctx context.Context, novelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, novelID)
	return nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
