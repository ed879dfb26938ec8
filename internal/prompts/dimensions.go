package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackzampolin/novelparser/internal/types"
)

// Instruction returns the analysis instruction for one dimension.
func Instruction(d types.AnalysisDimension) string {
	switch d {
	case types.DimensionCharacters:
		return "梳理本章出场的所有人物。对每个人物，判断其在故事中的分量（主角/配角/龙套），" +
			"概括其在本章中展现出的性格面貌和关键行为。" +
			"重点分析人物之间的关系网络——不仅标注关系类型，还要关注本章中关系是否发生了微妙的变化或转折。"
	case types.DimensionPlot:
		return "用自己的话概括本章的故事走向。梳理关键事件的因果链条——每个重要事件是被什么驱动的，" +
			"又引发了什么后果。点明本章的核心冲突是什么，以及作者在章末留下了哪些悬念。"
	case types.DimensionForeshadowing:
		return "寻找作者在本章埋下的伏笔和暗示——那些看似不经意但可能在后文有重要作用的细节。" +
			"如果本章某些情节呼应了前面章节的铺垫，也请指出。" +
			"标注本章的剧情转折点，以及章末是否留有引人继续阅读的钩子。"
	case types.DimensionWritingTechnique:
		return "分析作者的叙事策略：使用的是第几人称？全知还是限知视角？" +
			"时间线是否有变化（倒叙、插叙、闪回）？" +
			"注意叙事节奏的把控——哪些地方是精细的场景描写，哪些地方是跳跃式的概述，这种节奏变化产生了什么效果？"
	case types.DimensionRhetoric:
		return "发掘本章中出彩的修辞手法——比喻是否新颖，拟人是否传神，排比是否有力？" +
			"请附上原文中最有代表性的例句。评价整体的语言风格特征，并摘录最多3句让你印象深刻的佳句。"
	case types.DimensionEmotion:
		return "感受本章的情感纹理。整体基调是什么？" +
			"随着情节推进，情感是如何流动和转变的？" +
			"用段落或场景为单位标注情感变化，并分析作者是用了什么手法来营造这种氛围的。"
	case types.DimensionThemes:
		return "提炼本章触及的深层主题——爱情、权力、孤独、成长、死亡、自由……" +
			"作者通过情节和人物传达了什么样的价值立场？是否涉及社会批判或哲学思考？"
	case types.DimensionWorldbuilding:
		return "记录本章中新出现或进一步展开的世界设定：地点、组织、势力、社会规则、超自然法则、重要物品等。" +
			"注意权力结构和社会关系方面的信息。"
	default:
		panic(fmt.Sprintf("prompts: unhandled analysis dimension %q", string(d)))
	}
}

// exampleJSON returns the JSON shape shown to the model for one dimension.
func exampleJSON(d types.AnalysisDimension) string {
	switch d {
	case types.DimensionCharacters:
		return `"characters": {
    "characters": [{"name": "姓名", "role": "主角/配角/龙套", "traits": ["特征1"], "actions": "行为描述"}],
    "relationships": [{"from": "人名A", "to": "人名B", "relation_type": "类型", "description": "描述", "change": "变化或null"}],
    "insights": "对本章人物塑造的整体评价和深层解读，可以自由发挥"
  }`
	case types.DimensionPlot:
		return `"plot": {
    "summary": "剧情摘要",
    "key_events": [{"event": "事件描述", "cause": "原因或null", "effect": "影响或null"}],
    "conflicts": ["冲突1"],
    "suspense": ["悬念1"],
    "insights": "对本章叙事策略、情节编排的深层解读"
  }`
	case types.DimensionForeshadowing:
		return `"foreshadowing": {
    "setups": [{"content": "伏笔内容", "chapter_ref": null}],
    "callbacks": [{"content": "呼应内容", "chapter_ref": "第X章"}],
    "turning_points": ["转折点1"],
    "cliffhangers": ["悬念1"],
    "insights": "对作者伏笔技巧和叙事张力的评价"
  }`
	case types.DimensionWritingTechnique:
		return `"writing_technique": {
    "narrative_perspective": "叙事视角",
    "time_sequence": "时序处理",
    "pacing": "节奏描述",
    "structural_notes": "结构特点",
    "insights": "对写作技法的整体评价，独到之处或不足"
  }`
	case types.DimensionRhetoric:
		return `"rhetoric": {
    "devices": [{"name": "手法名", "example": "原文例句"}],
    "language_style": "语言风格描述",
    "notable_quotes": ["佳句1"],
    "insights": "对本章语言艺术的整体鉴赏"
  }`
	case types.DimensionEmotion:
		return `"emotion": {
    "overall_tone": "整体基调",
    "emotion_arc": [{"segment": "段落/场景", "emotion": "情绪类型", "intensity": "高/中/低"}],
    "atmosphere_techniques": ["手法1"],
    "insights": "对情感表达的深入解读"
  }`
	case types.DimensionThemes:
		return `"themes": {
    "motifs": ["母题1"],
    "values": ["价值观1"],
    "social_commentary": "社会议题或null",
    "insights": "对主题深度和思想内涵的评论"
  }`
	case types.DimensionWorldbuilding:
		return `"worldbuilding": {
    "locations": [{"name": "地名", "description": "描述"}],
    "organizations": [{"name": "组织名", "description": "描述"}],
    "power_systems": ["力量体系"],
    "items": [{"name": "物品名", "description": "描述"}],
    "rules": ["规则1"],
    "insights": "对世界观构建的整体评价"
  }`
	default:
		panic(fmt.Sprintf("prompts: unhandled analysis dimension %q", string(d)))
	}
}

// AnalysisExample renders the chapter-analysis JSON shape for dims.
func AnalysisExample(dims []types.AnalysisDimension) string {
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, "  "+exampleJSON(d))
	}
	return "{\n" + strings.Join(parts, ",\n") + "\n}"
}

// Summary field names.
const (
	SummaryOverallPlot   = "overall_plot"
	SummaryCharacterArcs = "character_arcs"
	SummaryThemes        = "themes"
	SummaryWritingStyle  = "writing_style"
	SummaryWorldbuilding = "worldbuilding"
)

// SummaryField maps a dimension to the NovelSummary field it feeds.
// Emotion has no book-level field and returns "".
func SummaryField(d types.AnalysisDimension) string {
	switch d {
	case types.DimensionCharacters:
		return SummaryCharacterArcs
	case types.DimensionPlot:
		return SummaryOverallPlot
	case types.DimensionForeshadowing, types.DimensionThemes:
		return SummaryThemes
	case types.DimensionWritingTechnique, types.DimensionRhetoric:
		return SummaryWritingStyle
	case types.DimensionWorldbuilding:
		return SummaryWorldbuilding
	case types.DimensionEmotion:
		return ""
	default:
		panic(fmt.Sprintf("prompts: unhandled analysis dimension %q", string(d)))
	}
}

// SummaryFields returns the distinct summary fields for dims, sorted.
func SummaryFields(dims []types.AnalysisDimension) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, d := range dims {
		f := SummaryField(d)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

var summaryExampleLines = map[string]string{
	SummaryCharacterArcs: `  "character_arcs": [{"name": "角色名", "arc": "人物弧线描述"}]`,
	SummaryOverallPlot:   `  "overall_plot": "全书剧情概述"`,
	SummaryThemes:        `  "themes": ["主题1", "主题2"]`,
	SummaryWritingStyle:  `  "writing_style": "写作风格总评"`,
	SummaryWorldbuilding: `  "worldbuilding": "世界观总结"`,
}

// SummaryExample renders the NovelSummary JSON shape for dims.
func SummaryExample(dims []types.AnalysisDimension) string {
	fields := SummaryFields(dims)
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, summaryExampleLines[f])
	}
	return "{\n" + strings.Join(lines, ",\n") + "\n}"
}
