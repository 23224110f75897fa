package llmclient

import (
	"strings"

	"github.com/tract-dev/tract/internal/types"
)

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// ExtractReasoning implements spec.md §6's auto-detect priority:
// message.reasoning (parsed) -> message.reasoning_content
// (reasoning_content) -> Anthropic-style content[type=thinking].thinking
// (anthropic) -> <think>...</think> tags in content (think_tags). Returns
// false if none of the four shapes are present.
func ExtractReasoning(msg ResponseMessage, anthropicThinking string) (text string, format types.ReasoningFormat, ok bool) {
	if msg.Reasoning != "" {
		return msg.Reasoning, types.ReasoningFormatParsed, true
	}
	if msg.ReasoningContent != "" {
		return msg.ReasoningContent, types.ReasoningFormatRawContent, true
	}
	if anthropicThinking != "" {
		return anthropicThinking, types.ReasoningFormatAnthropic, true
	}
	if text, ok := extractThinkTags(msg.Content); ok {
		return text, types.ReasoningFormatThinkTags, true
	}
	return "", "", false
}

// extractThinkTags pulls the contents of the first <think>...</think> span
// out of content, the last-resort auto-detect branch.
func extractThinkTags(content string) (string, bool) {
	start := strings.Index(content, thinkOpenTag)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(thinkOpenTag):]
	end := strings.Index(rest, thinkCloseTag)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// AnthropicThinkingFromBlocks returns the text of the first block of type
// "thinking", or "" if there is none (ExtractReasoning takes that text as
// a plain string so this package's reasoning auto-detect logic has no
// direct SDK dependency).
func AnthropicThinkingFromBlocks(blocks []ThinkingBlock) string {
	for _, b := range blocks {
		if b.Type == "thinking" {
			return b.Thinking
		}
	}
	return ""
}

// ThinkingBlock mirrors the Anthropic content-block shape spec.md §6
// names for the anthropic auto-detect branch
// (content[type=thinking].thinking), kept independent of the SDK's own
// block union so reasoning extraction has no SDK import.
type ThinkingBlock struct {
	Type     string
	Thinking string
}
