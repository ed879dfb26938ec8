// Package ingest imports plain-text chapter files as a novel.
//
// Each UTF-8 file is one chapter, named after the file. No chapter-boundary
// detection is attempted.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/novelparser/internal/store"
	"github.com/jackzampolin/novelparser/internal/types"
)

// Extension is the file suffix collected when a directory is given.
const Extension = ".txt"

var (
	lastNumber   = regexp.MustCompile(`(\d+)\D*$`)
	titleSuffix  = regexp.MustCompile(`[-_ ]?\d+$`)
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}
)

// NovelCreator persists an imported novel.
type NovelCreator interface {
	CreateNovel(ctx context.Context, novel *types.Novel, chapters []store.NewChapter) error
}

// Chapter is one file's contents.
type Chapter struct {
	Path    string
	Title   string
	Content string
}

// Request contains the parameters for importing a novel.
type Request struct {
	Paths      []string                  // files or directories of .txt files
	Title      string                    // novel title (optional, derived from the first file if empty)
	Dimensions []types.AnalysisDimension // enabled dimensions (optional, defaults apply)
	Logger     *slog.Logger
}

// Result describes an imported novel.
type Result struct {
	NovelID  string `json:"novel_id" yaml:"novel_id"`
	Title    string `json:"title" yaml:"title"`
	Chapters int    `json:"chapters" yaml:"chapters"`
	Skipped  int    `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Import reads the chapter files and creates the novel in one transaction.
func Import(ctx context.Context, st NovelCreator, req Request) (*Result, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(req.Paths) == 0 {
		return nil, fmt.Errorf("no chapter files provided")
	}

	paths, err := expand(req.Paths)
	if err != nil {
		return nil, err
	}
	chapters, err := readAll(paths)
	if err != nil {
		return nil, err
	}

	kept := make([]store.NewChapter, 0, len(chapters))
	for _, ch := range chapters {
		if strings.TrimSpace(ch.Content) == "" {
			log.Warn("skipping empty chapter file", "path", ch.Path)
			continue
		}
		kept = append(kept, store.NewChapter{Title: ch.Title, Content: ch.Content})
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("all %d chapter files are empty", len(chapters))
	}

	title := req.Title
	if title == "" {
		title = NovelTitle(paths[0])
	}
	var dims []types.AnalysisDimension
	if len(req.Dimensions) > 0 {
		dims = types.Normalize(req.Dimensions)
	}

	novel := &types.Novel{Title: title, Source: paths[0], EnabledDimensions: dims}
	if err := st.CreateNovel(ctx, novel, kept); err != nil {
		return nil, fmt.Errorf("failed to create novel: %w", err)
	}
	log.Info("imported novel", "novel_id", novel.ID, "title", title, "chapters", len(kept))

	return &Result{
		NovelID:  novel.ID,
		Title:    title,
		Chapters: len(kept),
		Skipped:  len(chapters) - len(kept),
	}, nil
}

// ReadFiles expands directories and reads every chapter file in order.
func ReadFiles(paths []string) ([]Chapter, error) {
	expanded, err := expand(paths)
	if err != nil {
		return nil, err
	}
	return readAll(expanded)
}

// expand replaces directories with their .txt files and sorts the result.
func expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("chapter file not found: %s", p)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		var files []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), Extension) {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
		out = append(out, sortByNumber(files)...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s files found", Extension)
	}
	if len(paths) > 1 {
		out = sortByNumber(out)
	}
	return out, nil
}

func readAll(paths []string) ([]Chapter, error) {
	chapters := make([]Chapter, 0, len(paths))
	for _, p := range paths {
		content, err := ReadText(p)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, Chapter{Path: p, Title: ChapterTitle(p), Content: content})
	}
	return chapters, nil
}

// ReadText reads a UTF-8 file, dropping a byte-order mark and normalizing
// line endings to \n.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

// sortByNumber orders files by the last number in their name (chapter-2
// before chapter-10, 第2章 before 第10章). Files without a number come first, alphabetically.
func sortByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.SliceStable(sorted, func(i, j int) bool {
		mi := lastNumber.FindStringSubmatch(ChapterTitle(sorted[i]))
		mj := lastNumber.FindStringSubmatch(ChapterTitle(sorted[j]))

		switch {
		case len(mi) > 1 && len(mj) > 1:
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			if ni != nj {
				return ni < nj
			}
			return sorted[i] < sorted[j]
		case len(mi) > 1:
			return false
		case len(mj) > 1:
			return true
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted
}

// ChapterTitle is the file name without its extension.
func ChapterTitle(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NovelTitle derives a novel title from a chapter file, dropping a numeric
// suffix: "three-body-01.txt" -> "three-body". A bare number falls back to
// the parent directory name.
func NovelTitle(path string) string {
	name := titleSuffix.ReplaceAllString(ChapterTitle(path), "")
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}
	return name
}
