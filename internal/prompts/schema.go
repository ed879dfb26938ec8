package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/novelparser/internal/types"
)

func str() map[string]any         { return map[string]any{"type": "string"} }
func nullableStr() map[string]any { return map[string]any{"type": []string{"string", "null"}} }
func strList() map[string]any     { return map[string]any{"type": "array", "items": str()} }

func list(item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item}
}

func object(props map[string]any, required ...string) map[string]any {
	o := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		o["required"] = required
	}
	return o
}

// DimensionSchema returns the JSON schema of one ChapterAnalysis sub-record.
// Fields the decoder fills with zero values are optional; fields it cannot
// default are required. Unknown fields are allowed.
func DimensionSchema(d types.AnalysisDimension) map[string]any {
	switch d {
	case types.DimensionCharacters:
		return object(map[string]any{
			"characters": list(object(map[string]any{
				"name":    str(),
				"role":    str(),
				"traits":  strList(),
				"actions": str(),
			}, "name", "role")),
			"relationships": list(object(map[string]any{
				"from":          str(),
				"to":            str(),
				"relation_type": str(),
				"description":   str(),
				"change":        nullableStr(),
			}, "from", "to", "relation_type")),
			"insights": nullableStr(),
		}, "characters", "relationships")
	case types.DimensionPlot:
		return object(map[string]any{
			"summary": str(),
			"key_events": list(object(map[string]any{
				"event":  str(),
				"cause":  nullableStr(),
				"effect": nullableStr(),
			}, "event")),
			"conflicts": strList(),
			"suspense":  strList(),
			"insights":  nullableStr(),
		}, "summary")
	case types.DimensionForeshadowing:
		item := object(map[string]any{
			"content":     str(),
			"chapter_ref": nullableStr(),
		}, "content")
		return object(map[string]any{
			"setups":         list(item),
			"callbacks":      list(item),
			"turning_points": strList(),
			"cliffhangers":   strList(),
			"insights":       nullableStr(),
		})
	case types.DimensionWritingTechnique:
		return object(map[string]any{
			"narrative_perspective": str(),
			"time_sequence":         str(),
			"pacing":                str(),
			"structural_notes":      str(),
			"insights":              nullableStr(),
		}, "narrative_perspective")
	case types.DimensionRhetoric:
		return object(map[string]any{
			"devices": list(object(map[string]any{
				"name":    str(),
				"example": str(),
			}, "name")),
			"language_style": str(),
			"notable_quotes": strList(),
			"insights":       nullableStr(),
		})
	case types.DimensionEmotion:
		return object(map[string]any{
			"overall_tone": str(),
			"emotion_arc": list(object(map[string]any{
				"segment":   str(),
				"emotion":   str(),
				"intensity": str(),
			}, "segment", "emotion")),
			"atmosphere_techniques": strList(),
			"insights":              nullableStr(),
		}, "overall_tone")
	case types.DimensionThemes:
		return object(map[string]any{
			"motifs":            strList(),
			"values":            strList(),
			"social_commentary": nullableStr(),
			"insights":          nullableStr(),
		})
	case types.DimensionWorldbuilding:
		element := object(map[string]any{
			"name":        str(),
			"description": str(),
		}, "name")
		return object(map[string]any{
			"locations":     list(element),
			"organizations": list(element),
			"power_systems": strList(),
			"items":         list(element),
			"rules":         strList(),
			"insights":      nullableStr(),
		})
	default:
		panic(fmt.Sprintf("prompts: unhandled analysis dimension %q", string(d)))
	}
}

// AnalysisSchema is the schema of a ChapterAnalysis restricted to dims.
// Every sub-record is optional; the model may omit a dimension.
func AnalysisSchema(dims []types.AnalysisDimension) map[string]any {
	props := make(map[string]any, len(dims))
	for _, d := range dims {
		props[string(d)] = DimensionSchema(d)
	}
	return object(props)
}

// SummarySchema is the schema of a NovelSummary restricted to the fields
// that dims feed.
func SummarySchema(dims []types.AnalysisDimension) map[string]any {
	props := make(map[string]any)
	for _, f := range SummaryFields(dims) {
		switch f {
		case SummaryCharacterArcs:
			arcs := list(object(map[string]any{
				"name": str(),
				"arc":  str(),
			}, "name", "arc"))
			arcs["type"] = []string{"array", "null"}
			props[f] = arcs
		case SummaryThemes:
			themes := strList()
			themes["type"] = []string{"array", "null"}
			props[f] = themes
		default:
			props[f] = nullableStr()
		}
	}
	return object(props)
}

// SchemaJSON serializes a schema map for compilation.
func SchemaJSON(schema map[string]any) (json.RawMessage, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	return b, nil
}
