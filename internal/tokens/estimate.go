// Package tokens estimates model-token cost of text and splits oversized
// chapter content into segments that fit a token budget.
package tokens

// Character weights in twentieths of a token, so the sum stays exact.
const (
	weightSeparator = 5  // 0.25
	weightASCII     = 6  // 0.3
	weightWide      = 30 // 1.5
	weightScale     = 20
)

// Estimate returns a conservative token count for text without a tokenizer.
// ASCII whitespace and punctuation cost 0.25, other ASCII 0.3, anything
// non-ASCII 1.5. The total is rounded up.
func Estimate(text string) int {
	units := 0
	for _, r := range text {
		switch {
		case r >= 0x80:
			units += weightWide
		case isASCIISpace(r) || isASCIIPunct(r):
			units += weightSeparator
		default:
			units += weightASCII
		}
	}
	return (units + weightScale - 1) / weightScale
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func isASCIIPunct(r rune) bool {
	return (r >= '!' && r <= '/') ||
		(r >= ':' && r <= '@') ||
		(r >= '[' && r <= '`') ||
		(r >= '{' && r <= '~')
}
