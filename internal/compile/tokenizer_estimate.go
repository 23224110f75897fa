package compile

import "github.com/tract-dev/tract/internal/types"

// EstimateTokenCounter is the default TokenCounter: a character-count
// heuristic, used when no API-backed counter is configured (spec.md
// §4.6: "a tract must always be able to report a token estimate without
// a network call"). Source() reports "estimate:chars/4" so callers can
// tell an approximation apart from an authoritative API count.
type EstimateTokenCounter struct {
	// CharsPerToken is the divisor applied to rune count; 4 matches the
	// rough English-text ratio commonly quoted for the Claude/GPT family
	// of tokenizers.
	CharsPerToken int
}

// NewEstimateTokenCounter returns the default 4-chars-per-token estimator.
func NewEstimateTokenCounter() *EstimateTokenCounter {
	return &EstimateTokenCounter{CharsPerToken: 4}
}

func (e *EstimateTokenCounter) ratio() int {
	if e.CharsPerToken <= 0 {
		return 4
	}
	return e.CharsPerToken
}

// CountText estimates a single string's token count.
func (e *EstimateTokenCounter) CountText(text string) int {
	n := len([]rune(text))
	ratio := e.ratio()
	return (n + ratio - 1) / ratio
}

// CountMessages sums the per-message estimate plus a small per-message
// overhead for role/name framing, matching how chat wire formats add
// fixed tokens per turn.
func (e *EstimateTokenCounter) CountMessages(messages []types.Message) int {
	total := 0
	for _, m := range messages {
		total += e.CountText(m.Content) + 3
		if m.Name != "" {
			total += e.CountText(m.Name)
		}
	}
	return total
}

// Source identifies this counter as an estimate, not an API-backed count.
func (e *EstimateTokenCounter) Source() string { return "estimate:chars/4" }

var _ TokenCounter = (*EstimateTokenCounter)(nil)
