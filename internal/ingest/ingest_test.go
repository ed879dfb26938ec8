package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/types"
)

type fakeCreator struct {
	novel    *types.Novel
	chapters []store.NewChapter
	err      error
}

func (f *fakeCreator) CreateNovel(_ context.Context, novel *types.Novel, chapters []store.NewChapter) error {
	if f.err != nil {
		return f.err
	}
	novel.ID = "novel-1"
	f.novel = novel
	f.chapters = chapters
	return nil
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSortByNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "already sorted",
			input:    []string{"book-1.txt", "book-2.txt", "book-3.txt"},
			expected: []string{"book-1.txt", "book-2.txt", "book-3.txt"},
		},
		{
			name:     "mixed with double digits",
			input:    []string{"book-10.txt", "book-2.txt", "book-1.txt"},
			expected: []string{"book-1.txt", "book-2.txt", "book-10.txt"},
		},
		{
			name:     "number inside a chinese title",
			input:    []string{"第10章.txt", "第2章.txt", "第1章.txt"},
			expected: []string{"第1章.txt", "第2章.txt", "第10章.txt"},
		},
		{
			name:     "numbered and unnumbered",
			input:    []string{"book-2.txt", "preface.txt", "book-1.txt"},
			expected: []string{"preface.txt", "book-1.txt", "book-2.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sortByNumber(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("index %d: got %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		input   string
		chapter string
		novel   string
	}{
		{"/path/to/three-body-01.txt", "three-body-01", "three-body"},
		{"/path/to/第一章 风起.txt", "第一章 风起", "第一章 风起"},
		{"/books/活着/12.txt", "12", "活着"},
		{"simple.txt", "simple", "simple"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ChapterTitle(tt.input); got != tt.chapter {
				t.Errorf("ChapterTitle = %q, want %q", got, tt.chapter)
			}
			if got := NovelTitle(tt.input); got != tt.novel {
				t.Errorf("NovelTitle = %q, want %q", got, tt.novel)
			}
		})
	}
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()

	t.Run("strips bom and normalizes newlines", func(t *testing.T) {
		path := writeFile(t, dir, "a.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte("甲\r\n\r\n乙\r丙")...))
		got, err := ReadText(path)
		if err != nil {
			t.Fatal(err)
		}
		if got != "甲\n\n乙\n丙" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("rejects invalid utf8", func(t *testing.T) {
		path := writeFile(t, dir, "gbk.txt", []byte{0xC4, 0xE3, 0xBA, 0xC3, 0xFF})
		if _, err := ReadText(path); err == nil {
			t.Error("expected error for non-UTF-8 input")
		}
	})
}

func TestImport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "活着")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "chapter-10.txt", []byte("第十章内容"))
	writeFile(t, dir, "chapter-2.txt", []byte("第二章内容"))
	writeFile(t, dir, "chapter-1.txt", []byte("第一章内容"))
	writeFile(t, dir, "chapter-3.txt", []byte("  \n"))
	writeFile(t, dir, "notes.md", []byte("ignored"))

	t.Run("directory import", func(t *testing.T) {
		fc := &fakeCreator{}
		res, err := Import(context.Background(), fc, Request{Paths: []string{dir}})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.NovelID != "novel-1" || res.Chapters != 3 || res.Skipped != 1 {
			t.Errorf("result = %+v", res)
		}
		if res.Title != "chapter" {
			t.Errorf("title = %q", res.Title)
		}
		wantTitles := []string{"chapter-1", "chapter-2", "chapter-10"}
		for i, ch := range fc.chapters {
			if ch.Title != wantTitles[i] {
				t.Errorf("chapter %d title = %q, want %q", i, ch.Title, wantTitles[i])
			}
		}
		if fc.novel.EnabledDimensions != nil {
			t.Errorf("dimensions should be left for the store default, got %v", fc.novel.EnabledDimensions)
		}
	})

	t.Run("explicit title and dimensions", func(t *testing.T) {
		fc := &fakeCreator{}
		res, err := Import(context.Background(), fc, Request{
			Paths:      []string{filepath.Join(dir, "chapter-2.txt"), filepath.Join(dir, "chapter-1.txt")},
			Title:      "活着",
			Dimensions: []types.AnalysisDimension{types.DimensionPlot, types.DimensionPlot},
		})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if res.Title != "活着" || fc.chapters[0].Content != "第一章内容" {
			t.Errorf("result = %+v, first = %+v", res, fc.chapters[0])
		}
		if len(fc.novel.EnabledDimensions) != 1 {
			t.Errorf("dimensions = %v", fc.novel.EnabledDimensions)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Import(context.Background(), &fakeCreator{}, Request{Paths: []string{filepath.Join(dir, "nope.txt")}}); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("only empty files", func(t *testing.T) {
		_, err := Import(context.Background(), &fakeCreator{}, Request{Paths: []string{filepath.Join(dir, "chapter-3.txt")}})
		if err == nil {
			t.Error("expected error when every file is empty")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		boom := errors.New("disk full")
		_, err := Import(context.Background(), &fakeCreator{err: boom}, Request{Paths: []string{dir}})
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped disk full", err)
		}
	})
}
