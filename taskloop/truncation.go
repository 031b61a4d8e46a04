package taskloop

import "github.com/ktully/quill/llmclient"

// Keep selects how much of the not-yet-dropped history survives a truncation.
type Keep string

const (
	KeepHalf    Keep = "half"
	KeepQuarter Keep = "quarter"
)

// TruncationRange marks a half-open index range [Start, End) of the API
// conversation history excluded from the next model request. The history
// itself is never mutated; ranges are recomputed against the full list, and
// successive ranges advance Start to the previous End so dropped spans never
// overlap or re-include earlier turns.
type TruncationRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NextTruncationRange computes the next range to exclude given the current
// history length and the previously applied range, if any.
func NextTruncationRange(historyLen int, prev *TruncationRange, keep Keep) TruncationRange {
	start := 0
	if prev != nil {
		start = prev.End
	}

	span := historyLen - start
	end := start
	switch keep {
	case KeepQuarter:
		end = start + span/4
	default:
		end = start + span/2
	}
	return TruncationRange{Start: start, End: end}
}

// TruncatedView returns the history suffix visible to the next request.
func TruncatedView(messages []llmclient.Message, r *TruncationRange) []llmclient.Message {
	if r == nil {
		return messages
	}
	if r.End >= len(messages) {
		return nil
	}
	return messages[r.End:]
}

// contextWindowMargins maps known context-window sizes to the headroom
// reserved for the system prompt and the next response.
var contextWindowMargins = map[int]int{
	64_000:  27_000,
	128_000: 30_000,
	200_000: 40_000,
}

// MaxAllowedTokens returns the usage ceiling above which history must be
// truncated before the next request.
func MaxAllowedTokens(contextWindow int) int {
	if margin, ok := contextWindowMargins[contextWindow]; ok {
		return contextWindow - margin
	}
	fallback := contextWindow - 40_000
	if pct := int(float64(contextWindow) * 0.8); pct > fallback {
		return pct
	}
	return fallback
}

// chooseKeep picks the truncation aggressiveness from the last request's
// total token usage.
func chooseKeep(totalTokens, maxAllowed int) Keep {
	if totalTokens > 2*maxAllowed {
		return KeepQuarter
	}
	return KeepHalf
}
