// Package types provides shared types used across multiple packages.
// This package has no dependencies on other novelparser packages to avoid import cycles.
package types

import "fmt"

// AnalysisDimension is one analytical facet that can be requested from the model
// and merged independently.
type AnalysisDimension string

const (
	DimensionCharacters       AnalysisDimension = "characters"
	DimensionPlot             AnalysisDimension = "plot"
	DimensionForeshadowing    AnalysisDimension = "foreshadowing"
	DimensionWritingTechnique AnalysisDimension = "writing_technique"
	DimensionRhetoric         AnalysisDimension = "rhetoric"
	DimensionEmotion          AnalysisDimension = "emotion"
	DimensionThemes           AnalysisDimension = "themes"
	DimensionWorldbuilding    AnalysisDimension = "worldbuilding"
)

// AllDimensions returns every dimension in canonical order.
// Every per-dimension switch in the codebase is tested against this list.
func AllDimensions() []AnalysisDimension {
	return []AnalysisDimension{
		DimensionCharacters,
		DimensionPlot,
		DimensionForeshadowing,
		DimensionWritingTechnique,
		DimensionRhetoric,
		DimensionEmotion,
		DimensionThemes,
		DimensionWorldbuilding,
	}
}

// DefaultDimensions returns the dimensions enabled when a novel is first imported.
func DefaultDimensions() []AnalysisDimension {
	return []AnalysisDimension{
		DimensionCharacters,
		DimensionPlot,
		DimensionForeshadowing,
		DimensionWritingTechnique,
	}
}

// ParseDimension converts a string to an AnalysisDimension.
func ParseDimension(s string) (AnalysisDimension, error) {
	d := AnalysisDimension(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown analysis dimension: %q", s)
	}
	return d, nil
}

// Valid reports whether d is one of the known dimensions.
func (d AnalysisDimension) Valid() bool {
	switch d {
	case DimensionCharacters, DimensionPlot, DimensionForeshadowing, DimensionWritingTechnique,
		DimensionRhetoric, DimensionEmotion, DimensionThemes, DimensionWorldbuilding:
		return true
	}
	return false
}

// IsDefault reports whether d is part of the default import set.
func (d AnalysisDimension) IsDefault() bool {
	for _, def := range DefaultDimensions() {
		if def == d {
			return true
		}
	}
	return false
}

// DisplayName returns the heading used for the dimension in prompts and listings.
func (d AnalysisDimension) DisplayName() string {
	switch d {
	case DimensionCharacters:
		return "人物图谱"
	case DimensionPlot:
		return "剧情脉络"
	case DimensionForeshadowing:
		return "伏笔与转折"
	case DimensionWritingTechnique:
		return "写作技法"
	case DimensionRhetoric:
		return "修辞与语言"
	case DimensionEmotion:
		return "情感与氛围"
	case DimensionThemes:
		return "主题与思想"
	case DimensionWorldbuilding:
		return "世界观设定"
	default:
		panic(fmt.Sprintf("unhandled analysis dimension %q", string(d)))
	}
}

// Description returns a one-line summary of what the dimension covers.
func (d AnalysisDimension) Description() string {
	switch d {
	case DimensionCharacters:
		return "出场人物、性格特征、人物间关系及变化"
	case DimensionPlot:
		return "本章摘要、关键事件序列、因果链、冲突与悬念"
	case DimensionForeshadowing:
		return "伏笔铺设与呼应、剧情转折点、悬念设置/解除"
	case DimensionWritingTechnique:
		return "叙事视角、时序处理、节奏控制、结构特点"
	case DimensionRhetoric:
		return "修辞手法及例句、语言风格、经典佳句摘录"
	case DimensionEmotion:
		return "情感基调、情感变化曲线、氛围营造手法"
	case DimensionThemes:
		return "涉及的主题/母题、价值观表达、社会/哲学议题"
	case DimensionWorldbuilding:
		return "地点/组织/势力/规则/物品、权力体系、社会结构"
	default:
		panic(fmt.Sprintf("unhandled analysis dimension %q", string(d)))
	}
}

// DimensionInfo describes a dimension for listings (CLI, HTTP).
type DimensionInfo struct {
	ID          AnalysisDimension `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Default     bool              `json:"default" yaml:"default"`
}

// DimensionInfos returns metadata for every dimension.
func DimensionInfos() []DimensionInfo {
	all := AllDimensions()
	infos := make([]DimensionInfo, 0, len(all))
	for _, d := range all {
		infos = append(infos, DimensionInfo{
			ID:          d,
			Name:        d.DisplayName(),
			Description: d.Description(),
			Default:     d.IsDefault(),
		})
	}
	return infos
}

// DimensionSet is an order-irrelevant, duplicate-free set of dimensions.
type DimensionSet map[AnalysisDimension]struct{}

// NewDimensionSet builds a set from a slice, dropping duplicates.
func NewDimensionSet(dims ...AnalysisDimension) DimensionSet {
	set := make(DimensionSet, len(dims))
	for _, d := range dims {
		set[d] = struct{}{}
	}
	return set
}

// Has reports whether d is in the set.
func (s DimensionSet) Has(d AnalysisDimension) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the set members in canonical order.
func (s DimensionSet) Sorted() []AnalysisDimension {
	out := make([]AnalysisDimension, 0, len(s))
	for _, d := range AllDimensions() {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Normalize returns dims de-duplicated in canonical order.
func Normalize(dims []AnalysisDimension) []AnalysisDimension {
	return NewDimensionSet(dims...).Sorted()
}
