package prompts

import "sort"

// EmbeddedPrompt describes one built-in prompt template.
type EmbeddedPrompt struct {
	Key         string   `json:"key" yaml:"key"`
	Text        string   `json:"text" yaml:"text"`
	Description string   `json:"description" yaml:"description"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Hash        string   `json:"hash" yaml:"hash"`
}

var descriptions = map[string]string{
	SystemKey:        "System message for every analysis and summary call",
	ChapterKey:       "Whole-chapter analysis over the enabled dimensions",
	SegmentKey:       "Analysis of one segment of an oversized chapter",
	GroupSummaryKey:  "Reduces a group of chapter analyses into a stage summary",
	FinalSummaryKey:  "Reduces group summaries into the book summary",
	ManualSummaryKey: "Full-book summary prompt for manual use",
}

// All returns every embedded prompt sorted by key.
func All() []EmbeddedPrompt {
	texts := map[string]string{
		SystemKey:        systemPrompt,
		ChapterKey:       chapterTmpl,
		SegmentKey:       segmentTmpl,
		GroupSummaryKey:  groupSummaryTmpl,
		FinalSummaryKey:  finalSummaryTmpl,
		ManualSummaryKey: manualSummaryTmpl,
	}
	out := make([]EmbeddedPrompt, 0, len(texts))
	for key, text := range texts {
		out = append(out, EmbeddedPrompt{
			Key:         key,
			Text:        text,
			Description: descriptions[key],
			Variables:   ExtractVariables(text),
			Hash:        HashText(text),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Get returns the embedded prompt for key.
func Get(key string) (EmbeddedPrompt, bool) {
	for _, p := range All() {
		if p.Key == key {
			return p, true
		}
	}
	return EmbeddedPrompt{}, false
}
