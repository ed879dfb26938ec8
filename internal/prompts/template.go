package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
)

// variablePattern matches template references like {{.Title}} or {{ .Title }}.
var variablePattern = regexp.MustCompile(`\{\{\s*\.([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// ExtractVariables returns the sorted, distinct field names a template
// references directly. "{{.Title}} {{.Content}}" returns [Content Title].
func ExtractVariables(text string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			vars = append(vars, match[1])
		}
	}
	sort.Strings(vars)
	return vars
}

// HashText returns a SHA256 hash of the text, recorded with model calls so a
// logged call can be traced to the exact prompt it used.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
