package llmclient

import "math"

// ModelInfo describes a model's limits and pricing. Prices are USD per
// million tokens.
type ModelInfo struct {
	ID               string  `json:"id"`
	Provider         string  `json:"provider"`
	ContextWindow    int     `json:"context_window"`
	MaxOutputTokens  int     `json:"max_output_tokens"`
	InputPrice       float64 `json:"input_price"`
	OutputPrice      float64 `json:"output_price"`
	CacheWritesPrice float64 `json:"cache_writes_price"`
	CacheReadsPrice  float64 `json:"cache_reads_price"`
}

// catalog holds known models. Unknown models fall back to a 128k window with
// zero pricing so cost reads as zero rather than wrong.
var catalog = map[string]ModelInfo{
	"claude-sonnet-4-20250514": {
		ID: "claude-sonnet-4-20250514", Provider: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 8192,
		InputPrice: 3.0, OutputPrice: 15.0,
		CacheWritesPrice: 3.75, CacheReadsPrice: 0.3,
	},
	"claude-3-5-sonnet-20241022": {
		ID: "claude-3-5-sonnet-20241022", Provider: "anthropic",
		ContextWindow: 200_000, MaxOutputTokens: 8192,
		InputPrice: 3.0, OutputPrice: 15.0,
		CacheWritesPrice: 3.75, CacheReadsPrice: 0.3,
	},
	"gpt-4o": {
		ID: "gpt-4o", Provider: "openai",
		ContextWindow: 128_000, MaxOutputTokens: 16384,
		InputPrice: 2.5, OutputPrice: 10.0,
	},
	"gpt-4o-mini": {
		ID: "gpt-4o-mini", Provider: "openai",
		ContextWindow: 128_000, MaxOutputTokens: 16384,
		InputPrice: 0.15, OutputPrice: 0.6,
	},
	"deepseek-chat": {
		ID: "deepseek-chat", Provider: "deepseek",
		ContextWindow: 64_000, MaxOutputTokens: 8192,
		InputPrice: 0.27, OutputPrice: 1.1,
	},
}

// GetModelInfo looks up a model by ID. The second return reports whether the
// model was found in the catalog.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	info, ok := catalog[modelID]
	if !ok {
		return ModelInfo{ID: modelID, ContextWindow: 128_000, MaxOutputTokens: 8192}, false
	}
	return info, true
}

// Cost returns the cumulative USD cost of the given token counts under this
// model's pricing, rounded to three decimal places.
func (m ModelInfo) Cost(inputTokens, outputTokens, cacheWriteTokens, cacheReadTokens int) float64 {
	cost := m.InputPrice/1_000_000*float64(inputTokens) +
		m.OutputPrice/1_000_000*float64(outputTokens) +
		m.CacheWritesPrice/1_000_000*float64(cacheWriteTokens) +
		m.CacheReadsPrice/1_000_000*float64(cacheReadTokens)
	return math.Round(cost*1000) / 1000
}
