package merge

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jackzampolin/novelparser/internal/types"
)

func TestSegmentsCharacterIdentity(t *testing.T) {
	seg1 := &types.ChapterAnalysis{Characters: &types.CharactersAnalysis{
		Characters: []types.Character{{Name: "Alice", Role: "主角", Traits: []string{"brave"}}},
		Relationships: []types.Relationship{
			{From: "Alice", To: "Bob", RelationType: "friend"},
		},
	}}
	seg2 := &types.ChapterAnalysis{Characters: &types.CharactersAnalysis{
		Characters: []types.Character{
			{Name: "Alice", Role: "配角", Traits: []string{"shy", "clever"}},
			{Name: "Bob", Role: "配角"},
		},
		Relationships: []types.Relationship{
			{From: "Alice", To: "Bob", RelationType: "rival"},
			{From: "Bob", To: "Alice", RelationType: "rival"},
		},
	}}

	merged := Segments([]*types.ChapterAnalysis{seg1, seg2})
	chars := merged.Characters.Characters
	if len(chars) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(chars))
	}
	if chars[0].Name != "Alice" || !reflect.DeepEqual(chars[0].Traits, []string{"brave"}) {
		t.Errorf("expected first segment's Alice to win, got %+v", chars[0])
	}
	if chars[1].Name != "Bob" {
		t.Errorf("expected Bob second, got %s", chars[1].Name)
	}

	rels := merged.Characters.Relationships
	if len(rels) != 2 {
		t.Fatalf("expected 2 directed relationships, got %d", len(rels))
	}
	if rels[0].RelationType != "friend" {
		t.Errorf("expected first (Alice, Bob) to win, got %s", rels[0].RelationType)
	}
	if rels[1].From != "Bob" || rels[1].To != "Alice" {
		t.Errorf("expected reversed pair to be kept, got %+v", rels[1])
	}
}

func TestSegmentsPlotSummaryJoin(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Plot: &types.PlotAnalysis{Summary: "A happened."}},
		{Plot: &types.PlotAnalysis{Summary: ""}},
		{Plot: &types.PlotAnalysis{Summary: "B happened."}},
	})
	if got := merged.Plot.Summary; got != "A happened. B happened." {
		t.Errorf("expected %q, got %q", "A happened. B happened.", got)
	}
}

func TestSegmentsKeyEventsConcatenate(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Plot: &types.PlotAnalysis{KeyEvents: []types.KeyEvent{{Event: "X"}}, Conflicts: []string{"c"}}},
		{Plot: &types.PlotAnalysis{KeyEvents: []types.KeyEvent{{Event: "Y"}}, Conflicts: []string{"c"}}},
	})
	events := merged.Plot.KeyEvents
	if len(events) != 2 || events[0].Event != "X" || events[1].Event != "Y" {
		t.Errorf("expected [X Y], got %+v", events)
	}
	if !reflect.DeepEqual(merged.Plot.Conflicts, []string{"c", "c"}) {
		t.Errorf("observations must not be de-duplicated, got %v", merged.Plot.Conflicts)
	}
}

func TestSegmentsInsights(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Foreshadowing: &types.ForeshadowingAnalysis{Insights: "setup heavy"}},
		{Foreshadowing: &types.ForeshadowingAnalysis{Insights: ""}},
		{Foreshadowing: &types.ForeshadowingAnalysis{Insights: "setup heavy"}},
		{Foreshadowing: &types.ForeshadowingAnalysis{Insights: "pays off"}},
	})
	if got := merged.Foreshadowing.Insights; got != "setup heavy pays off" {
		t.Errorf("expected distinct insights joined once, got %q", got)
	}
}

func TestSegmentsInsightsKeepContainedStrings(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Plot: &types.PlotAnalysis{Insights: "the heir is betrayed"}},
		{Plot: &types.PlotAnalysis{Insights: "betrayed"}},
		{Plot: &types.PlotAnalysis{Insights: "the heir is betrayed"}},
	})
	if got := merged.Plot.Insights; got != "the heir is betrayed betrayed" {
		t.Errorf("expected both distinct insights, got %q", got)
	}
}

func TestSegmentsInsightsPerDimension(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Plot: &types.PlotAnalysis{Insights: "same"}},
		{Emotion: &types.EmotionAnalysis{Insights: "same"}},
		{Plot: &types.PlotAnalysis{Insights: "same"}},
	})
	if merged.Plot.Insights != "same" || merged.Emotion.Insights != "same" {
		t.Errorf("plot %q emotion %q", merged.Plot.Insights, merged.Emotion.Insights)
	}
}

func TestDimensionSkipsInsightAlreadyInAccumulator(t *testing.T) {
	acc := &types.ChapterAnalysis{Plot: &types.PlotAnalysis{Insights: "known"}}
	Dimension(acc, &types.ChapterAnalysis{Plot: &types.PlotAnalysis{Insights: "known"}}, types.DimensionPlot)
	Dimension(acc, &types.ChapterAnalysis{Plot: &types.PlotAnalysis{Insights: "kno"}}, types.DimensionPlot)
	if acc.Plot.Insights != "known kno" {
		t.Errorf("insights = %q", acc.Plot.Insights)
	}
}

func TestSegmentsLastWins(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{
			WritingTechnique: &types.WritingTechniqueAnalysis{NarrativePerspective: "first"},
			Themes:           &types.ThemesAnalysis{Motifs: []string{"love"}},
		},
		{},
		{
			WritingTechnique: &types.WritingTechniqueAnalysis{NarrativePerspective: "third"},
			Themes:           &types.ThemesAnalysis{Motifs: []string{"power"}},
		},
	})
	if merged.WritingTechnique.NarrativePerspective != "third" {
		t.Errorf("expected last writing technique, got %s", merged.WritingTechnique.NarrativePerspective)
	}
	if !reflect.DeepEqual(merged.Themes.Motifs, []string{"power"}) {
		t.Errorf("expected last themes, got %v", merged.Themes.Motifs)
	}
}

func TestSegmentsScalarsAndLists(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{
			Rhetoric: &types.RhetoricAnalysis{LanguageStyle: "terse", Devices: []types.RhetoricalDevice{{Name: "比喻"}}},
			Emotion:  &types.EmotionAnalysis{OverallTone: "calm", AtmosphereTechniques: []string{"rain"}},
			Worldbuilding: &types.WorldbuildingAnalysis{
				Locations: []types.WorldElement{{Name: "city"}},
				Rules:     []string{"no magic"},
			},
		},
		{
			Rhetoric: &types.RhetoricAnalysis{LanguageStyle: "lyrical", Devices: []types.RhetoricalDevice{{Name: "比喻"}}},
			Emotion:  &types.EmotionAnalysis{OverallTone: "tense"},
			Worldbuilding: &types.WorldbuildingAnalysis{
				Locations: []types.WorldElement{{Name: "city"}},
			},
		},
	})
	if merged.Rhetoric.LanguageStyle != "terse lyrical" {
		t.Errorf("expected joined language style, got %q", merged.Rhetoric.LanguageStyle)
	}
	if len(merged.Rhetoric.Devices) != 2 {
		t.Errorf("expected devices concatenated, got %d", len(merged.Rhetoric.Devices))
	}
	if merged.Emotion.OverallTone != "calm tense" {
		t.Errorf("expected joined tone, got %q", merged.Emotion.OverallTone)
	}
	if len(merged.Worldbuilding.Locations) != 2 || len(merged.Worldbuilding.Rules) != 1 {
		t.Errorf("unexpected worldbuilding merge: %+v", merged.Worldbuilding)
	}
}

func TestSegmentsAbsentDimensionsStayNil(t *testing.T) {
	merged := Segments([]*types.ChapterAnalysis{
		{Plot: &types.PlotAnalysis{Summary: "only plot"}},
		nil,
	})
	if got := merged.Present(); !reflect.DeepEqual(got, []types.AnalysisDimension{types.DimensionPlot}) {
		t.Errorf("expected only plot present, got %v", got)
	}

	b, err := json.Marshal(merged)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(raw) != 1 {
		t.Errorf("expected one key in JSON, got %d: %s", len(raw), b)
	}
}

// Every dimension must have a merge rule; a missing case panics.
func TestDimensionHandlesEveryDimension(t *testing.T) {
	full := fullAnalysis()
	for _, d := range types.AllDimensions() {
		t.Run(string(d), func(t *testing.T) {
			acc := &types.ChapterAnalysis{}
			Dimension(acc, full, d)
			if !acc.Has(d) {
				t.Errorf("dimension %s was not merged", d)
			}
		})
	}
}

func TestDimensionUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown dimension")
		}
	}()
	Dimension(&types.ChapterAnalysis{}, &types.ChapterAnalysis{}, types.AnalysisDimension("bogus"))
}

func fullAnalysis() *types.ChapterAnalysis {
	return &types.ChapterAnalysis{
		Characters:       &types.CharactersAnalysis{},
		Plot:             &types.PlotAnalysis{},
		Foreshadowing:    &types.ForeshadowingAnalysis{},
		WritingTechnique: &types.WritingTechniqueAnalysis{},
		Rhetoric:         &types.RhetoricAnalysis{},
		Emotion:          &types.EmotionAnalysis{},
		Themes:           &types.ThemesAnalysis{},
		Worldbuilding:    &types.WorldbuildingAnalysis{},
	}
}
