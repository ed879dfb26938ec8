package types

import "time"

// Novel is an imported book and the dimensions enabled for it.
type Novel struct {
	ID                string              `json:"id" yaml:"id"`
	Title             string              `json:"title" yaml:"title"`
	Source            string              `json:"source" yaml:"source"`
	EnabledDimensions []AnalysisDimension `json:"enabled_dimensions" yaml:"enabled_dimensions"`
	CreatedAt         time.Time           `json:"created_at" yaml:"created_at"`
}

// NovelMeta is a listing row with progress counts.
type NovelMeta struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	ChapterCount  int       `json:"chapter_count" yaml:"chapter_count"`
	AnalyzedCount int       `json:"analyzed_count" yaml:"analyzed_count"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Chapter is one chapter of a novel. Index is 0-based.
type Chapter struct {
	ID       int64            `json:"id" yaml:"id"`
	NovelID  string           `json:"novel_id" yaml:"novel_id"`
	Index    int              `json:"index" yaml:"index"`
	Title    string           `json:"title" yaml:"title"`
	Content  string           `json:"content" yaml:"-"`
	Analysis *ChapterAnalysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// ChapterMeta is a chapter listing row without content.
type ChapterMeta struct {
	ID            int64  `json:"id" yaml:"id"`
	Index         int    `json:"index" yaml:"index"`
	Title         string `json:"title" yaml:"title"`
	HasAnalysis   bool   `json:"has_analysis" yaml:"has_analysis"`
	TokenEstimate int    `json:"token_estimate" yaml:"token_estimate"`
}

// NovelSummary is the book-level result of the hierarchical reduction.
// Which fields are populated depends on the novel's enabled dimensions.
type NovelSummary struct {
	OverallPlot   string         `json:"overall_plot,omitempty" yaml:"overall_plot,omitempty"`
	CharacterArcs []CharacterArc `json:"character_arcs,omitempty" yaml:"character_arcs,omitempty"`
	Themes        []string       `json:"themes,omitempty" yaml:"themes,omitempty"`
	WritingStyle  string         `json:"writing_style,omitempty" yaml:"writing_style,omitempty"`
	Worldbuilding string         `json:"worldbuilding,omitempty" yaml:"worldbuilding,omitempty"`
}

type CharacterArc struct {
	Name string `json:"name" yaml:"name"`
	Arc  string `json:"arc" yaml:"arc"`
}

// LLMConfig selects the model endpoint and its budget.
type LLMConfig struct {
	BaseURL           string  `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey            string  `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model             string  `json:"model" yaml:"model" mapstructure:"model"`
	MaxContextTokens  int     `json:"max_context_tokens" yaml:"max_context_tokens" mapstructure:"max_context_tokens"`
	MaxOutputTokens   int     `json:"max_output_tokens,omitempty" yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	Temperature       float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// DefaultLLMConfig mirrors the defaults used before a user configures a model.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:          "https://api.openai.com/v1",
		Model:            "gpt-4o",
		MaxContextTokens: 1000000,
		MaxOutputTokens:  8192,
		Temperature:      0.7,
		TimeoutSeconds:   300,
	}
}
