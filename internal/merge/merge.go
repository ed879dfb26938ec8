// Package merge combines the per-segment analyses of one chapter into a
// single ChapterAnalysis.
//
// Each dimension has its own rule. Named entities (characters, relationships)
// are de-duplicated by identity with the first occurrence winning. Observation
// lists are concatenated in segment order. Narrative scalars are joined with
// a single space, and so are insights, each distinct string once. Holistic judgments (writing technique, themes)
// take the last segment that produced one.
package merge

import (
	"fmt"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Segments merges analyses in order. Nil entries are skipped. The result is
// always non-nil; a dimension absent from every segment stays nil.
func Segments(segments []*types.ChapterAnalysis) *types.ChapterAnalysis {
	merged := &types.ChapterAnalysis{}
	m := newMerger()
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		for _, d := range types.AllDimensions() {
			m.dimension(merged, seg, d)
		}
	}
	return merged
}

// Dimension folds seg's sub-record for d into acc.
func Dimension(acc, seg *types.ChapterAnalysis, d types.AnalysisDimension) {
	newMerger().dimension(acc, seg, d)
}

// merger remembers, per dimension, the insight strings already joined so a
// repeat is dropped while a distinct string is always kept.
type merger struct {
	insights map[types.AnalysisDimension]map[string]bool
}

func newMerger() *merger {
	return &merger{insights: make(map[types.AnalysisDimension]map[string]bool)}
}

func (m *merger) dimension(acc, seg *types.ChapterAnalysis, d types.AnalysisDimension) {
	switch d {
	case types.DimensionCharacters:
		if seg.Characters != nil {
			acc.Characters = m.mergeCharacters(acc.Characters, seg.Characters)
		}
	case types.DimensionPlot:
		if seg.Plot != nil {
			acc.Plot = m.mergePlot(acc.Plot, seg.Plot)
		}
	case types.DimensionForeshadowing:
		if seg.Foreshadowing != nil {
			acc.Foreshadowing = m.mergeForeshadowing(acc.Foreshadowing, seg.Foreshadowing)
		}
	case types.DimensionWritingTechnique:
		if seg.WritingTechnique != nil {
			wt := *seg.WritingTechnique
			acc.WritingTechnique = &wt
		}
	case types.DimensionRhetoric:
		if seg.Rhetoric != nil {
			acc.Rhetoric = m.mergeRhetoric(acc.Rhetoric, seg.Rhetoric)
		}
	case types.DimensionEmotion:
		if seg.Emotion != nil {
			acc.Emotion = m.mergeEmotion(acc.Emotion, seg.Emotion)
		}
	case types.DimensionThemes:
		if seg.Themes != nil {
			th := *seg.Themes
			th.Motifs = append([]string(nil), seg.Themes.Motifs...)
			th.Values = append([]string(nil), seg.Themes.Values...)
			acc.Themes = &th
		}
	case types.DimensionWorldbuilding:
		if seg.Worldbuilding != nil {
			acc.Worldbuilding = m.mergeWorldbuilding(acc.Worldbuilding, seg.Worldbuilding)
		}
	default:
		panic(fmt.Sprintf("merge: unhandled analysis dimension %q", string(d)))
	}
}

func (m *merger) mergeCharacters(acc, in *types.CharactersAnalysis) *types.CharactersAnalysis {
	if acc == nil {
		acc = &types.CharactersAnalysis{
			Characters:    []types.Character{},
			Relationships: []types.Relationship{},
		}
	}
	for _, ch := range in.Characters {
		if !hasCharacter(acc.Characters, ch.Name) {
			acc.Characters = append(acc.Characters, ch)
		}
	}
	for _, rel := range in.Relationships {
		if !hasRelationship(acc.Relationships, rel.From, rel.To) {
			acc.Relationships = append(acc.Relationships, rel)
		}
	}
	acc.Insights = m.joinInsights(types.DimensionCharacters, acc.Insights, in.Insights)
	return acc
}

func hasCharacter(list []types.Character, name string) bool {
	for _, c := range list {
		if c.Name == name {
			return true
		}
	}
	return false
}

func hasRelationship(list []types.Relationship, from, to string) bool {
	for _, r := range list {
		if r.From == from && r.To == to {
			return true
		}
	}
	return false
}

func (m *merger) mergePlot(acc, in *types.PlotAnalysis) *types.PlotAnalysis {
	if acc == nil {
		acc = &types.PlotAnalysis{
			KeyEvents: []types.KeyEvent{},
			Conflicts: []string{},
			Suspense:  []string{},
		}
	}
	acc.Summary = joinText(acc.Summary, in.Summary)
	acc.KeyEvents = append(acc.KeyEvents, in.KeyEvents...)
	acc.Conflicts = append(acc.Conflicts, in.Conflicts...)
	acc.Suspense = append(acc.Suspense, in.Suspense...)
	acc.Insights = m.joinInsights(types.DimensionPlot, acc.Insights, in.Insights)
	return acc
}

func (m *merger) mergeForeshadowing(acc, in *types.ForeshadowingAnalysis) *types.ForeshadowingAnalysis {
	if acc == nil {
		acc = &types.ForeshadowingAnalysis{
			Setups:        []types.ForeshadowItem{},
			Callbacks:     []types.ForeshadowItem{},
			TurningPoints: []string{},
			Cliffhangers:  []string{},
		}
	}
	acc.Setups = append(acc.Setups, in.Setups...)
	acc.Callbacks = append(acc.Callbacks, in.Callbacks...)
	acc.TurningPoints = append(acc.TurningPoints, in.TurningPoints...)
	acc.Cliffhangers = append(acc.Cliffhangers, in.Cliffhangers...)
	acc.Insights = m.joinInsights(types.DimensionForeshadowing, acc.Insights, in.Insights)
	return acc
}

func (m *merger) mergeRhetoric(acc, in *types.RhetoricAnalysis) *types.RhetoricAnalysis {
	if acc == nil {
		acc = &types.RhetoricAnalysis{
			Devices:       []types.RhetoricalDevice{},
			NotableQuotes: []string{},
		}
	}
	acc.Devices = append(acc.Devices, in.Devices...)
	acc.LanguageStyle = joinText(acc.LanguageStyle, in.LanguageStyle)
	acc.NotableQuotes = append(acc.NotableQuotes, in.NotableQuotes...)
	acc.Insights = m.joinInsights(types.DimensionRhetoric, acc.Insights, in.Insights)
	return acc
}

func (m *merger) mergeEmotion(acc, in *types.EmotionAnalysis) *types.EmotionAnalysis {
	if acc == nil {
		acc = &types.EmotionAnalysis{
			EmotionArc:           []types.EmotionPoint{},
			AtmosphereTechniques: []string{},
		}
	}
	acc.OverallTone = joinText(acc.OverallTone, in.OverallTone)
	acc.EmotionArc = append(acc.EmotionArc, in.EmotionArc...)
	acc.AtmosphereTechniques = append(acc.AtmosphereTechniques, in.AtmosphereTechniques...)
	acc.Insights = m.joinInsights(types.DimensionEmotion, acc.Insights, in.Insights)
	return acc
}

func (m *merger) mergeWorldbuilding(acc, in *types.WorldbuildingAnalysis) *types.WorldbuildingAnalysis {
	if acc == nil {
		acc = &types.WorldbuildingAnalysis{
			Locations:     []types.WorldElement{},
			Organizations: []types.WorldElement{},
			PowerSystems:  []string{},
			Items:         []types.WorldElement{},
			Rules:         []string{},
		}
	}
	acc.Locations = append(acc.Locations, in.Locations...)
	acc.Organizations = append(acc.Organizations, in.Organizations...)
	acc.PowerSystems = append(acc.PowerSystems, in.PowerSystems...)
	acc.Items = append(acc.Items, in.Items...)
	acc.Rules = append(acc.Rules, in.Rules...)
	acc.Insights = m.joinInsights(types.DimensionWorldbuilding, acc.Insights, in.Insights)
	return acc
}

// joinText appends next to acc with a single space when both are non-empty.
func joinText(acc, next string) string {
	switch {
	case next == "":
		return acc
	case acc == "":
		return next
	default:
		return acc + " " + next
	}
}

// joinInsights is joinText that skips a value equal to one already joined
// for d. Text already in acc before the first join counts as joined.
func (m *merger) joinInsights(d types.AnalysisDimension, acc, next string) string {
	seen := m.insights[d]
	if seen == nil {
		seen = make(map[string]bool)
		if acc != "" {
			seen[acc] = true
		}
		m.insights[d] = seen
	}
	if next == "" || seen[next] {
		return acc
	}
	seen[next] = true
	return joinText(acc, next)
}
