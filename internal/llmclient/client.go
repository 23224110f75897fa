// Package llmclient defines the chat-completion client interface Tract
// consumes (spec.md §6) plus an Anthropic-backed implementation. There is
// no teacher analogue for an LLM client abstraction (beads calls Haiku
// directly from internal/compact); this package generalizes haiku.go's
// retry/backoff/span shape into an interface any chat-capable backend can
// satisfy, and adds the reasoning-format auto-detection recovered from
// cookbook/fundamentals/08_tool_calling.py's direct-API-call pattern
// ("we call the API directly... Tract manages the context; we manage the
// LLM call").
package llmclient

import (
	"context"

	"github.com/tract-dev/tract/internal/types"
)

// ChatMessage is the wire shape of one message in a chat() call (spec.md
// §6), a superset of types.Message carrying the tool-calling fields a
// compiled Message doesn't need to round-trip.
type ChatMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	Name       string           `json:"name,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolCalls  []types.ToolCall `json:"tool_calls,omitempty"`
}

// FromMessage lifts a compiled types.Message to a ChatMessage.
func FromMessage(m types.Message) ChatMessage {
	return ChatMessage{Role: m.Role, Content: m.Content, Name: m.Name}
}

// ResponseMessage is the assistant message of one chat() choice.
type ResponseMessage struct {
	Content          string           `json:"content"`
	Reasoning        string           `json:"reasoning,omitempty"`
	ReasoningContent string           `json:"reasoning_content,omitempty"`
	ToolCalls        []types.ToolCall `json:"tool_calls,omitempty"`
}

// Choice wraps one ResponseMessage, matching the {choices:[{message}]}
// wire envelope spec.md §6 names.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ChatResult is the full response of one chat() call.
type ChatResult struct {
	Choices []Choice     `json:"choices"`
	Usage   *types.Usage `json:"usage,omitempty"`
	Model   string       `json:"model,omitempty"`
}

// Text returns the first choice's content, or "" if there are no choices.
func (r ChatResult) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChatClient is the consumed LLM interface (spec.md §6): chat(messages,
// config) -> ChatResult. Implementations own retry/backoff and telemetry.
type ChatClient interface {
	Chat(ctx context.Context, messages []ChatMessage, config types.LLMConfig) (*ChatResult, error)
}
