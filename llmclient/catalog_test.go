package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetModelInfoKnown(t *testing.T) {
	info, ok := GetModelInfo("claude-3-5-sonnet-20241022")
	assert.True(t, ok)
	assert.Equal(t, 200_000, info.ContextWindow)
	assert.Equal(t, "anthropic", info.Provider)
}

func TestGetModelInfoUnknownFallback(t *testing.T) {
	info, ok := GetModelInfo("some-new-model")
	assert.False(t, ok)
	assert.Equal(t, 128_000, info.ContextWindow)
	assert.Zero(t, info.InputPrice)
}

func TestCost(t *testing.T) {
	info, _ := GetModelInfo("claude-3-5-sonnet-20241022")
	// 1M input at $3 + 1M output at $15.
	assert.InDelta(t, 18.0, info.Cost(1_000_000, 1_000_000, 0, 0), 0.0001)
	// Rounded to three decimals.
	assert.InDelta(t, 0.003, info.Cost(1000, 0, 0, 0), 0.0001)
}

func TestCostWithCache(t *testing.T) {
	info, _ := GetModelInfo("claude-3-5-sonnet-20241022")
	got := info.Cost(0, 0, 1_000_000, 1_000_000)
	assert.InDelta(t, 4.05, got, 0.0001)
}

func TestUsageTotal(t *testing.T) {
	u := Usage{InputTokens: 1, OutputTokens: 2, CacheWriteTokens: 3, CacheReadTokens: 4}
	assert.Equal(t, 10, u.Total())
}
