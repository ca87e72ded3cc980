package text

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// ContextWindow is the token window assumed for completion budgets.
const ContextWindow = 16000

// TokenCounter counts prompt tokens with the cl100k_base encoding. A zero
// TokenCounter falls back to a character estimate.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter loads the cl100k_base encoding.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenCounter{}, fmt.Errorf("text: load tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: enc}, nil
}

// Count returns the number of tokens in s.
func (c *TokenCounter) Count(s string) int {
	if c == nil || c.encoding == nil {
		return EstimateTokens(s)
	}
	return len(c.encoding.Encode(s, nil, nil))
}

// Budget clamps want so that prompt plus completion fit the context window,
// never returning less than a small floor.
func (c *TokenCounter) Budget(prompt string, want int) int {
	const floor = 256
	available := ContextWindow - c.Count(prompt)
	if want > available {
		want = available
	}
	if want < floor {
		want = floor
	}
	return want
}

// EstimateTokens approximates the token count at three characters per token.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 3
}
