package analysis

import (
	"errors"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"json fence", "```json\n{\"plot\": {\"summary\": \"test\"}}\n```", `{"plot": {"summary": "test"}}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"trailing commas", "{\"a\": [1, 2,], \"b\": {\"c\": 1,\n}}", "{\"a\": [1, 2], \"b\": {\"c\": 1\n}}"},
		{"surrounding space", "  \n{}\n ", "{}"},
		{"no fence", `{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	raw := "```json\n" + `{
  "characters": {
    "characters": [{"name": "林黛玉", "role": "主角", "traits": ["敏感"], "actions": "葬花"}],
    "relationships": [{"from": "林黛玉", "to": "贾宝玉", "relation_type": "知己", "description": "", "change": null}],
  },
  "plot": {"summary": "黛玉进府", "key_events": [{"event": "初见", "cause": null}]},
  "themes": {"motifs": ["爱情"], "social_commentary": null}
}` + "\n```"

	a, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("ParseAnalysis() error = %v", err)
	}
	if a.Characters == nil || a.Characters.Characters[0].Name != "林黛玉" {
		t.Fatalf("characters not decoded: %+v", a.Characters)
	}
	if a.Plot.Summary != "黛玉进府" || len(a.Plot.KeyEvents) != 1 {
		t.Errorf("plot not decoded: %+v", a.Plot)
	}
	if a.Themes == nil || a.Themes.Motifs[0] != "爱情" {
		t.Errorf("themes not decoded: %+v", a.Themes)
	}
	if a.Emotion != nil {
		t.Error("absent dimension should stay nil")
	}
}

func TestParseAnalysisErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Sorry, I cannot help with that."},
		{"missing required summary", `{"plot": {"key_events": []}}`},
		{"missing character role", `{"characters": {"characters": [{"name": "A"}], "relationships": []}}`},
		{"wrong type", `{"plot": {"summary": 3}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysis(tt.raw)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.What != "analysis" {
				t.Errorf("expected analysis parse error, got %s", perr.What)
			}
		})
	}
}

func TestParseErrorExcerpt(t *testing.T) {
	raw := strings.Repeat("错", 500)
	_, err := ParseAnalysis(raw)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if n := len([]rune(perr.Excerpt)); n != ExcerptRunes {
		t.Errorf("expected %d rune excerpt, got %d", ExcerptRunes, n)
	}
	if !strings.Contains(err.Error(), "failed to parse analysis JSON") {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestParseSummary(t *testing.T) {
	s, err := ParseSummary(`{"overall_plot": "全书", "character_arcs": [{"name": "A", "arc": "成长"}], "themes": ["命运",], "writing_style": null}`)
	if err != nil {
		t.Fatalf("ParseSummary() error = %v", err)
	}
	if s.OverallPlot != "全书" || len(s.CharacterArcs) != 1 || len(s.Themes) != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}

	if _, err := ParseSummary(`{"character_arcs": [{"name": "A"}]}`); err == nil {
		t.Error("expected error for arc without text")
	}
}
