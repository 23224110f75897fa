package tract

import (
	"context"
	"fmt"
	"strings"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/types"
)

// Chat implements one round trip of spec.md §6's chat(): commit the
// caller's message, compile the resulting context, call the configured
// LLM client, and commit its response (plus a separate reasoning commit
// when one is detected and commit_reasoning is enabled). The resolution
// chain for config is call-site kwargs > llmConfigArg > the tract's
// "chat" OperationConfig > the tract default (spec.md §6).
func (t *Tract) Chat(ctx context.Context, userText string, llmConfigArg *types.LLMConfig, callSiteKwargs *types.LLMConfig) (*types.ChatResponse, error) {
	if t.chat == nil {
		return nil, fmt.Errorf("%w: Chat called with no ChatClient configured", types.ErrLLMConfigError)
	}

	if userText != "" {
		if _, err := t.User(ctx, userText, CommitOptions{}); err != nil {
			return nil, fmt.Errorf("commit user message: %w", err)
		}
	}

	compiled, err := t.Compile(ctx, compile.Options{})
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	resolved := types.ResolveLLMConfig(types.LLMConfig{}, t.cfg.OperationConfigs.ToOperationConfigs().Chat, llmConfigArg, callSiteKwargs)

	msgs := make([]llmclient.ChatMessage, len(compiled.Messages))
	for i, m := range compiled.Messages {
		msgs[i] = llmclient.FromMessage(m)
	}

	result, err := t.chat.Chat(ctx, msgs, resolved)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	text := result.Text()

	resp := &types.ChatResponse{GenerationConfig: resolved}
	if result.Usage != nil {
		resp.Usage = result.Usage
	}

	if t.cfg.CommitReasoning && len(result.Choices) > 0 {
		// anthropicThinking is left empty: ChatClient already normalizes
		// provider-specific response shapes into ResponseMessage before
		// this layer sees them, so only the parsed/reasoning_content/
		// think_tags branches of spec.md §6's auto-detect are reachable
		// here; a concrete Anthropic-backed client populates
		// ReasoningContent itself (see llmclient.AnthropicThinkingFromBlocks).
		if reasoningText, format, ok := llmclient.ExtractReasoning(result.Choices[0].Message, ""); ok {
			if format == types.ReasoningFormatThinkTags {
				text = stripThinkTags(text)
			}
			reasoningInfo, err := t.CreateCommit(ctx, types.Content{
				Type: types.ContentReasoning, Text: reasoningText, ReasoningFormat: format,
			}, CommitOptions{})
			if err != nil {
				return nil, fmt.Errorf("commit reasoning: %w", err)
			}
			resp.Reasoning = reasoningText
			resp.ReasoningCommit = reasoningInfo
		}
	}

	assistantInfo, err := t.Assistant(ctx, text, CommitOptions{GenerationConfig: &resolved})
	if err != nil {
		return nil, fmt.Errorf("commit assistant response: %w", err)
	}
	resp.Text = text
	resp.CommitInfo = *assistantInfo

	return resp, nil
}

// stripThinkTags removes the first <think>...</think> span from content,
// leaving the final answer as the committed assistant text once its
// reasoning has been split into its own commit.
func stripThinkTags(content string) string {
	start := strings.Index(content, "<think>")
	if start < 0 {
		return content
	}
	rest := content[start+len("<think>"):]
	end := strings.Index(rest, "</think>")
	if end < 0 {
		return content
	}
	return strings.TrimSpace(content[:start] + rest[end+len("</think>"):])
}
