package types

// ChapterAnalysis holds one optional sub-record per dimension.
// A nil sub-record means the dimension was not requested or not produced.
type ChapterAnalysis struct {
	Characters       *CharactersAnalysis       `json:"characters,omitempty"`
	Plot             *PlotAnalysis             `json:"plot,omitempty"`
	Foreshadowing    *ForeshadowingAnalysis    `json:"foreshadowing,omitempty"`
	WritingTechnique *WritingTechniqueAnalysis `json:"writing_technique,omitempty"`
	Rhetoric         *RhetoricAnalysis         `json:"rhetoric,omitempty"`
	Emotion          *EmotionAnalysis          `json:"emotion,omitempty"`
	Themes           *ThemesAnalysis           `json:"themes,omitempty"`
	Worldbuilding    *WorldbuildingAnalysis    `json:"worldbuilding,omitempty"`
}

// Has reports whether the analysis carries a sub-record for d.
func (a *ChapterAnalysis) Has(d AnalysisDimension) bool {
	if a == nil {
		return false
	}
	switch d {
	case DimensionCharacters:
		return a.Characters != nil
	case DimensionPlot:
		return a.Plot != nil
	case DimensionForeshadowing:
		return a.Foreshadowing != nil
	case DimensionWritingTechnique:
		return a.WritingTechnique != nil
	case DimensionRhetoric:
		return a.Rhetoric != nil
	case DimensionEmotion:
		return a.Emotion != nil
	case DimensionThemes:
		return a.Themes != nil
	case DimensionWorldbuilding:
		return a.Worldbuilding != nil
	default:
		panic("unhandled analysis dimension " + string(d))
	}
}

// Present returns the dimensions that carry a sub-record, in canonical order.
func (a *ChapterAnalysis) Present() []AnalysisDimension {
	var dims []AnalysisDimension
	for _, d := range AllDimensions() {
		if a.Has(d) {
			dims = append(dims, d)
		}
	}
	return dims
}

type CharactersAnalysis struct {
	Characters    []Character    `json:"characters"`
	Relationships []Relationship `json:"relationships"`
	Insights      string         `json:"insights,omitempty"`
}

type Character struct {
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Traits  []string `json:"traits"`
	Actions string   `json:"actions"`
}

// Relationship is directed: identity is the (From, To) pair.
type Relationship struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relation_type"`
	Description  string `json:"description"`
	Change       string `json:"change,omitempty"`
}

type PlotAnalysis struct {
	Summary   string     `json:"summary"`
	KeyEvents []KeyEvent `json:"key_events"`
	Conflicts []string   `json:"conflicts"`
	Suspense  []string   `json:"suspense"`
	Insights  string     `json:"insights,omitempty"`
}

type KeyEvent struct {
	Event  string `json:"event"`
	Cause  string `json:"cause,omitempty"`
	Effect string `json:"effect,omitempty"`
}

type ForeshadowingAnalysis struct {
	Setups        []ForeshadowItem `json:"setups"`
	Callbacks     []ForeshadowItem `json:"callbacks"`
	TurningPoints []string         `json:"turning_points"`
	Cliffhangers  []string         `json:"cliffhangers"`
	Insights      string           `json:"insights,omitempty"`
}

type ForeshadowItem struct {
	Content    string `json:"content"`
	ChapterRef string `json:"chapter_ref,omitempty"`
}

type WritingTechniqueAnalysis struct {
	NarrativePerspective string `json:"narrative_perspective"`
	TimeSequence         string `json:"time_sequence"`
	Pacing               string `json:"pacing"`
	StructuralNotes      string `json:"structural_notes"`
	Insights             string `json:"insights,omitempty"`
}

type RhetoricAnalysis struct {
	Devices       []RhetoricalDevice `json:"devices"`
	LanguageStyle string             `json:"language_style"`
	NotableQuotes []string           `json:"notable_quotes"`
	Insights      string             `json:"insights,omitempty"`
}

type RhetoricalDevice struct {
	Name    string `json:"name"`
	Example string `json:"example"`
}

type EmotionAnalysis struct {
	OverallTone          string         `json:"overall_tone"`
	EmotionArc           []EmotionPoint `json:"emotion_arc"`
	AtmosphereTechniques []string       `json:"atmosphere_techniques"`
	Insights             string         `json:"insights,omitempty"`
}

type EmotionPoint struct {
	Segment   string `json:"segment"`
	Emotion   string `json:"emotion"`
	Intensity string `json:"intensity"`
}

type ThemesAnalysis struct {
	Motifs           []string `json:"motifs"`
	Values           []string `json:"values"`
	SocialCommentary string   `json:"social_commentary,omitempty"`
	Insights         string   `json:"insights,omitempty"`
}

type WorldbuildingAnalysis struct {
	Locations     []WorldElement `json:"locations"`
	Organizations []WorldElement `json:"organizations"`
	PowerSystems  []string       `json:"power_systems"`
	Items         []WorldElement `json:"items"`
	Rules         []string       `json:"rules"`
	Insights      string         `json:"insights,omitempty"`
}

type WorldElement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
