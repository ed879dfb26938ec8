// Package prompts builds the model prompts for chapter analysis and the
// hierarchical book summary.
//
// Prompt bodies are embedded .tmpl files rendered with text/template. The
// per-dimension pieces (instructions, example JSON, validation schema) are
// generated in Go so that every dimension is handled at every site.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Prompt keys, recorded with every model call.
const (
	SystemKey        = "analysis.system"
	ChapterKey       = "analysis.chapter"
	SegmentKey       = "analysis.segment"
	GroupSummaryKey  = "summary.group"
	FinalSummaryKey  = "summary.final"
	ManualSummaryKey = "summary.manual"
)

var (
	//go:embed system.tmpl
	systemPrompt string
	//go:embed chapter.tmpl
	chapterTmpl string
	//go:embed segment.tmpl
	segmentTmpl string
	//go:embed group_summary.tmpl
	groupSummaryTmpl string
	//go:embed final_summary.tmpl
	finalSummaryTmpl string
	//go:embed manual_summary.tmpl
	manualSummaryTmpl string
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var (
	chapterTemplate       = template.Must(template.New(ChapterKey).Parse(chapterTmpl))
	segmentTemplate       = template.Must(template.New(SegmentKey).Parse(segmentTmpl))
	groupSummaryTemplate  = template.Must(template.New(GroupSummaryKey).Parse(groupSummaryTmpl))
	finalSummaryTemplate  = template.Must(template.New(FinalSummaryKey).Funcs(funcs).Parse(finalSummaryTmpl))
	manualSummaryTemplate = template.Must(template.New(ManualSummaryKey).Parse(manualSummaryTmpl))
)

// SystemPrompt returns the system message sent with every analysis call.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// DimensionSection is one "### name / instruction" block of a chapter prompt.
type DimensionSection struct {
	Name        string
	Instruction string
}

// ChapterDigest is one chapter's serialized analysis inside a summary prompt.
// Index is the 0-based chapter index; Number is what the prompt shows.
type ChapterDigest struct {
	Index    int
	Analysis string
}

// Number is the 1-based chapter number.
func (c ChapterDigest) Number() int {
	return c.Index + 1
}

type chapterData struct {
	Title         string
	Content       string
	SegmentNumber int
	SegmentTotal  int
	Dimensions    []DimensionSection
	Schema        string
}

type summaryData struct {
	Chapters []ChapterDigest
	Groups   []string
	Schema   string
}

func sections(dims []types.AnalysisDimension) []DimensionSection {
	out := make([]DimensionSection, 0, len(dims))
	for _, d := range dims {
		out = append(out, DimensionSection{Name: d.DisplayName(), Instruction: Instruction(d)})
	}
	return out
}

// ChapterPrompt asks for a whole-chapter analysis over dims.
func ChapterPrompt(title, content string, dims []types.AnalysisDimension) string {
	return render(chapterTemplate, chapterData{
		Title:      title,
		Content:    content,
		Dimensions: sections(dims),
		Schema:     AnalysisExample(dims),
	})
}

// SegmentPrompt asks for the analysis of segment index (0-based) of total.
func SegmentPrompt(title, segment string, index, total int, dims []types.AnalysisDimension) string {
	return render(segmentTemplate, chapterData{
		Title:         title,
		Content:       segment,
		SegmentNumber: index + 1,
		SegmentTotal:  total,
		Dimensions:    sections(dims),
		Schema:        AnalysisExample(dims),
	})
}

// GroupSummaryPrompt reduces one group of chapter analyses.
func GroupSummaryPrompt(chapters []ChapterDigest, dims []types.AnalysisDimension) string {
	return render(groupSummaryTemplate, summaryData{
		Chapters: chapters,
		Schema:   SummaryExample(dims),
	})
}

// FinalSummaryPrompt reduces the group summaries into the book summary.
func FinalSummaryPrompt(groups []string, dims []types.AnalysisDimension) string {
	return render(finalSummaryTemplate, summaryData{
		Groups: groups,
		Schema: SummaryExample(dims),
	})
}

// ManualSummaryPrompt embeds every analyzed chapter in one prompt, for users
// who paste it into a model themselves.
func ManualSummaryPrompt(chapters []ChapterDigest, dims []types.AnalysisDimension) string {
	return render(manualSummaryTemplate, summaryData{
		Chapters: chapters,
		Schema:   SummaryExample(dims),
	})
}

// render panics on execution failure; the templates are fixed at build time
// and the data types are local to this package.
func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("prompts: render %s: %v", t.Name(), err))
	}
	return buf.String()
}
