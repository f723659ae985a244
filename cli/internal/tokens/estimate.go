// Package tokens estimates prompt size and request cost for the pre-call
// filter. Estimation is byte-based (about four bytes per token).
package tokens

import (
	"fmt"
	"math"
)

const charsPerToken = 4

// DefaultResponseReserve is the number of tokens reserved per completion for
// the model's answer when checking a prompt against the context limit.
const DefaultResponseReserve = 256

// Estimate returns (len(prompt)+3)/4; empty string returns 0.
func Estimate(prompt string) int {
	n := len(prompt)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Total returns promptTokens plus one response reserve per completion,
// saturating at math.MaxInt. numCompletion < 1 counts as 1.
func Total(promptTokens, numCompletion int) int {
	if numCompletion < 1 {
		numCompletion = 1
	}
	if promptTokens < 0 {
		promptTokens = 0
	}
	reserve := DefaultResponseReserve * numCompletion
	if reserve > math.MaxInt-promptTokens {
		return math.MaxInt
	}
	return promptTokens + reserve
}

// Fee returns the estimated price of sending promptTokens once per
// completion, at perThousand currency units per 1K tokens.
func Fee(promptTokens, numCompletion int, perThousand float64) float64 {
	if numCompletion < 1 {
		numCompletion = 1
	}
	return float64(promptTokens) / 1000 * perThousand * float64(numCompletion)
}

// WarnIfOver returns a warning when total meets or exceeds warnThreshold of
// contextLimit, and "" otherwise or when contextLimit <= 0.
func WarnIfOver(total, contextLimit int, warnThreshold float64) string {
	if contextLimit <= 0 || total < 0 {
		return ""
	}
	limit := float64(contextLimit) * warnThreshold
	threshold := int(limit)
	if limit > float64(threshold) {
		threshold++
	}
	if total < threshold {
		return ""
	}
	return fmt.Sprintf("estimated tokens %d exceed %.0f%% of context limit %d",
		total, warnThreshold*100, contextLimit)
}
