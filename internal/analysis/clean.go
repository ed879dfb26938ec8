// Package analysis turns raw model output into ChapterAnalysis and
// NovelSummary values.
package analysis

import (
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// Clean strips Markdown code fences around a JSON body and removes trailing
// commas before a closing brace or bracket.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	return trailingComma.ReplaceAllString(s, "$1")
}
