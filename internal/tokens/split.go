package tokens

import "strings"

const paragraphSeparator = "\n\n"

// Split breaks content into ordered segments whose estimate fits maxTokens.
//
// Paragraphs (blank-line separated) are packed greedily: a segment is closed
// when the next paragraph would push it over budget. A paragraph that alone
// exceeds the budget is then hard-split by line with the same rule. A single
// line longer than the budget becomes its own segment; nothing is dropped.
// Segment boundaries are trimmed of surrounding whitespace.
//
// Split always returns at least one segment; empty content yields [""].
func Split(content string, maxTokens int) []string {
	if Estimate(content) <= maxTokens {
		return []string{strings.TrimSpace(content)}
	}

	packed := packParagraphs(content, maxTokens)

	segments := make([]string, 0, len(packed))
	for _, seg := range packed {
		if Estimate(seg) <= maxTokens {
			segments = append(segments, seg)
			continue
		}
		segments = append(segments, splitLines(seg, maxTokens)...)
	}
	if len(segments) == 0 {
		return []string{""}
	}
	return segments
}

func packParagraphs(content string, maxTokens int) []string {
	var (
		segments []string
		current  strings.Builder
		used     int
	)
	for _, para := range strings.Split(content, paragraphSeparator) {
		cost := Estimate(para)
		if used+cost > maxTokens && current.Len() > 0 {
			segments = append(segments, strings.TrimSpace(current.String()))
			current.Reset()
			used = 0
		}
		if current.Len() > 0 {
			current.WriteString(paragraphSeparator)
		}
		current.WriteString(para)
		used += cost
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}

func splitLines(seg string, maxTokens int) []string {
	var (
		chunks []string
		chunk  strings.Builder
		used   int
	)
	for _, line := range lines(seg) {
		cost := Estimate(line)
		if used+cost > maxTokens && chunk.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(chunk.String()))
			chunk.Reset()
			used = 0
		}
		chunk.WriteString(line)
		chunk.WriteByte('\n')
		used += cost
	}
	if tail := strings.TrimSpace(chunk.String()); tail != "" {
		chunks = append(chunks, tail)
	}
	return chunks
}

// lines splits on '\n', strips a trailing '\r' from each line and drops the
// empty remainder after a final newline.
func lines(s string) []string {
	if s == "" {
		return nil
	}
	out := strings.Split(s, "\n")
	if out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
