package tokens

import (
	"fmt"

	"github.com/jackzampolin/novelparser/internal/types"
)

// DefaultOutputReserve is used when a config leaves max output tokens unset.
const DefaultOutputReserve = 4096

// BudgetError reports a prompt whose estimate exceeds the context limit.
type BudgetError struct {
	Estimated int
	Limit     int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("prompt is estimated at %d tokens, over the %d token context limit", e.Estimated, e.Limit)
}

// CheckPrompt returns a BudgetError when prompt alone would not fit in
// contextLimit.
func CheckPrompt(prompt string, contextLimit int) error {
	if est := Estimate(prompt); est > contextLimit {
		return &BudgetError{Estimated: est, Limit: contextLimit}
	}
	return nil
}

// Available returns how many tokens remain for content once the template
// overhead and the output reserve are taken out of the context limit.
// It never goes below zero.
func Available(contextLimit, outputReserve, templateOverhead int) int {
	remaining := saturatingSub(contextLimit, templateOverhead)
	return saturatingSub(remaining, outputReserve)
}

// AvailableFor applies Available to an LLM config, falling back to
// DefaultOutputReserve when MaxOutputTokens is not set.
func AvailableFor(cfg types.LLMConfig, templateOverhead int) int {
	reserve := cfg.MaxOutputTokens
	if reserve <= 0 {
		reserve = DefaultOutputReserve
	}
	return Available(cfg.MaxContextTokens, reserve, templateOverhead)
}

func saturatingSub(a, b int) int {
	if b < 0 {
		b = 0
	}
	if a <= b {
		return 0
	}
	return a - b
}
