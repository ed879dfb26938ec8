package tokens

import (
	"strings"
	"testing"
	"time"
	"unicode"
)

// paragraphOf builds a paragraph estimated at exactly n tokens.
func paragraphOf(n int) string {
	return strings.Repeat(".", n*4)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestSplitFastPath(t *testing.T) {
	texts := []string{
		"Short text",
		"  padded paragraph  \n\n second one\n",
		"第一段。\n\n第二段。",
	}
	for _, text := range texts {
		segs := Split(text, Estimate(text))
		if len(segs) != 1 {
			t.Fatalf("expected 1 segment for %q, got %d", text, len(segs))
		}
		if segs[0] != strings.TrimSpace(text) {
			t.Errorf("expected %q, got %q", strings.TrimSpace(text), segs[0])
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	segs := Split("", 10)
	if len(segs) != 1 || segs[0] != "" {
		t.Fatalf("expected single empty segment, got %q", segs)
	}
	segs = Split("", 0)
	if len(segs) != 1 {
		t.Fatalf("expected single segment with zero budget, got %d", len(segs))
	}
}

func TestSplitGreedyPacking(t *testing.T) {
	p1, p2, p3 := paragraphOf(40), paragraphOf(40)+"1", paragraphOf(40)+"2"
	content := strings.Join([]string{p1, p2, p3}, "\n\n")

	t.Run("budget 70 closes before every paragraph", func(t *testing.T) {
		segs := Split(content, 70)
		want := []string{p1, p2, p3}
		if len(segs) != len(want) {
			t.Fatalf("expected %d segments, got %d", len(want), len(segs))
		}
		for i := range want {
			if segs[i] != want[i] {
				t.Errorf("segment %d mismatch", i)
			}
		}
	})

	t.Run("budget 85 packs the first two", func(t *testing.T) {
		segs := Split(content, 85)
		if len(segs) != 2 {
			t.Fatalf("expected 2 segments, got %d", len(segs))
		}
		if segs[0] != p1+"\n\n"+p2 {
			t.Errorf("first segment should hold paragraphs 1 and 2")
		}
		if segs[1] != p3 {
			t.Errorf("second segment should hold paragraph 3")
		}
	})
}

func TestSplitRespectsBudget(t *testing.T) {
	// Each paragraph is 19 wide runes: 28.5 tokens, estimated as 29.
	para := strings.Repeat("文", 19)
	paras := make([]string, 100)
	for i := range paras {
		paras[i] = para
	}
	content := strings.Join(paras, "\n\n")

	segs := Split(content, 100)
	if len(segs) != 34 {
		t.Fatalf("expected 34 segments of three paragraphs or fewer, got %d", len(segs))
	}
	for i, seg := range segs {
		if est := Estimate(seg); est > 100 {
			t.Errorf("segment %d estimated at %d, over budget", i, est)
		}
	}
}

func TestSplitReconstructsContent(t *testing.T) {
	content := strings.Join([]string{
		"First paragraph with a few words.",
		"Second paragraph.\nIt has two lines.",
		strings.Repeat("A long line of filler text. ", 20) + "\n" + strings.Repeat("More filler here. ", 20),
		"最后一段中文内容。",
	}, "\n\n")

	for _, budget := range []int{5, 20, 50, 120} {
		segs := Split(content, budget)
		if len(segs) == 0 {
			t.Fatalf("budget %d: zero segments", budget)
		}
		joined := strings.Join(segs, "\n")
		if stripSpace(joined) != stripSpace(content) {
			t.Errorf("budget %d: reconstruction lost or reordered content", budget)
		}
	}
}

func TestSplitOversizedLineTerminates(t *testing.T) {
	line := strings.Repeat("字", 1000)
	content := line + "\n\n" + line

	done := make(chan []string, 1)
	go func() { done <- Split(content, 10) }()

	select {
	case segs := <-done:
		if len(segs) != 2 {
			t.Fatalf("expected each oversized line as its own segment, got %d", len(segs))
		}
		for _, seg := range segs {
			if seg != line {
				t.Errorf("oversized line was altered")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Split did not terminate")
	}
}

func TestSplitHardSplitsOversizedParagraph(t *testing.T) {
	lines := []string{paragraphOf(30), paragraphOf(30) + "a", paragraphOf(30) + "b"}
	content := "intro\n\n" + strings.Join(lines, "\r\n")

	segs := Split(content, 40)
	want := []string{"intro", lines[0], lines[1], lines[2]}
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %d: %q", len(want), len(segs), segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d: expected %q, got %q", i, want[i], segs[i])
		}
	}
}
