package tokens

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackzampolin/novelparser/internal/types"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single letter rounds up", "a", 1},
		{"ten letters", "abcdefghij", 3},
		{"four separators", " .,\n", 1},
		{"mixed ascii", "Hi, there", 3}, // 7*0.3 + 2*0.25 = 2.6
		{"cjk", "这是一段中文测试文本", 15},
		{"cjk punctuation is wide", "。", 2},
		{"control char is plain ascii", "\x0b", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateIsExactForLongASCII(t *testing.T) {
	// 1000 letters at 0.3 each is exactly 300; float accumulation would drift.
	text := make([]byte, 1000)
	for i := range text {
		text[i] = 'x'
	}
	if got := Estimate(string(text)); got != 300 {
		t.Errorf("expected 300, got %d", got)
	}
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		ctx, reserve, overhead int
		want                   int
	}{
		{100000, 8192, 0, 91808},
		{5000, 8192, 0, 0},
		{100000, 8192, 500, 91308},
		{1000, 0, 1000, 0},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		if got := Available(tt.ctx, tt.reserve, tt.overhead); got != tt.want {
			t.Errorf("Available(%d, %d, %d) = %d, want %d", tt.ctx, tt.reserve, tt.overhead, got, tt.want)
		}
	}
}

func TestAvailableForFallsBackToDefaultReserve(t *testing.T) {
	cfg := types.LLMConfig{MaxContextTokens: 10000}
	if got := AvailableFor(cfg, 0); got != 10000-DefaultOutputReserve {
		t.Errorf("expected %d, got %d", 10000-DefaultOutputReserve, got)
	}

	cfg.MaxOutputTokens = 8192
	if got := AvailableFor(cfg, 500); got != 1308 {
		t.Errorf("expected 1308, got %d", got)
	}
}

func TestCheckPrompt(t *testing.T) {
	if err := CheckPrompt("short", 10); err != nil {
		t.Errorf("expected prompt to fit, got %v", err)
	}
	err := CheckPrompt(strings.Repeat("字", 10), 10)
	var berr *BudgetError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BudgetError, got %v", err)
	}
	if berr.Estimated != 15 || berr.Limit != 10 {
		t.Errorf("unexpected budget error: %+v", berr)
	}
}
