package compress

import (
	"fmt"
	"strings"

	"github.com/tract-dev/tract/internal/types"
)

const summarySystemPrompt = `You summarise a slice of an LLM agent's conversation history so it can be ` +
	`dropped from the live context window while preserving everything a later turn would still need. ` +
	`Write in the third person, past tense, as a compact briefing. Do not invent details not present ` +
	`in the transcript. Preserve tool call names, arguments, and results verbatim when they carry ` +
	`information a later step depends on.`

const guidanceSystemPrompt = `You are given the full text of several conversation segments about to be ` +
	`compressed independently. Produce a short shared guidance note (2-4 sentences) that tells a ` +
	`per-segment summariser what context from elsewhere in the conversation it must not lose.`

// retentionInstructionText unions the Instructions field of every
// retention criteria a group's IMPORTANT commits carry (spec.md §4.9
// step 5: "the union of retention instructions from that group's
// IMPORTANT commits").
func retentionInstructionText(criteria []types.RetentionCriteria) string {
	var parts []string
	for _, rc := range criteria {
		if rc.Instructions != "" {
			parts = append(parts, rc.Instructions)
		}
	}
	return strings.Join(parts, "\n")
}

// buildSummaryPrompt assembles the user prompt for one summarisation
// attempt (spec.md §4.9 step 5), folding in the prior rejection
// diagnosis on retries (step 6).
func buildSummaryPrompt(textBlock string, targetTokens int, retentionInstructions, guidance, diagnosis string) string {
	var b strings.Builder
	b.WriteString("Conversation segment to summarise:\n\n")
	b.WriteString(textBlock)
	fmt.Fprintf(&b, "\n\nTarget length: approximately %d tokens.", targetTokens)
	if retentionInstructions != "" {
		b.WriteString("\n\nThe summary must satisfy these retention instructions:\n")
		b.WriteString(retentionInstructions)
	}
	if guidance != "" {
		b.WriteString("\n\nGuidance from the broader conversation:\n")
		b.WriteString(guidance)
	}
	if diagnosis != "" {
		fmt.Fprintf(&b, "\n\nPrevious summary was rejected: %s", diagnosis)
	}
	return b.String()
}
