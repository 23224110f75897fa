package types

import "encoding/json"

// ContentType tags the concrete variant of a Content payload for storage
// and for the compiler's per-type projection rules (spec.md §4.8 step 6/7).
type ContentType string

const (
	ContentDialogue    ContentType = "dialogue"
	ContentInstruction ContentType = "instruction"
	ContentReasoning   ContentType = "reasoning"
	ContentToolIO      ContentType = "tool_io"
	ContentArtifact    ContentType = "artifact"
	ContentSession     ContentType = "session"
	ContentFreeform    ContentType = "freeform"
)

// ReasoningFormat records which auto-detection branch (spec.md §6) produced
// a Reasoning payload, so round-tripping through a different LLM client
// doesn't lose provenance of the original wire shape.
type ReasoningFormat string

const (
	ReasoningFormatParsed     ReasoningFormat = "parsed"
	ReasoningFormatRawContent ReasoningFormat = "reasoning_content"
	ReasoningFormatAnthropic  ReasoningFormat = "anthropic"
	ReasoningFormatThinkTags  ReasoningFormat = "think_tags"
)

// ToolCall mirrors the wire shape of an assistant tool invocation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is a sealed sum type replacing the reference implementation's
// dynamic, string-keyed content_type registry (Design Notes §9). Exactly
// one of the non-zero fields is populated; Type discriminates which.
// Custom variants require registering a ContentType + codec pair at
// process init via RegisterContentType — there is no open string registry.
type Content struct {
	Type ContentType `json:"type"`

	// Dialogue
	Role       string     `json:"role,omitempty"`
	Text       string     `json:"text,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`

	// Reasoning
	ReasoningFormat ReasoningFormat `json:"reasoning_format,omitempty"`

	// ToolIO (request or response payload for a tool call/result commit)
	ToolName   string          `json:"tool_name,omitempty"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput json.RawMessage `json:"tool_output,omitempty"`

	// Artifact
	ArtifactType string `json:"artifact_type,omitempty"`

	// Session
	SessionType string   `json:"session_type,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`
	NextSteps   []string `json:"next_steps,omitempty"`

	// Freeform — escape hatch for registered custom types; payload is
	// opaque to the compiler and carried through compile as-is.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeContent canonicalizes a Content payload for blob storage, so that
// two commits carrying logically identical content always resolve to the
// same content_hash (spec.md §6).
func EncodeContent(c Content) ([]byte, error) {
	return CanonicalJSON(c)
}

// DecodeContent parses a blob payload back into a Content value.
func DecodeContent(raw []byte) (Content, error) {
	var c Content
	err := json.Unmarshal(raw, &c)
	return c, err
}

// contentCodec is the registration record for a custom ContentType.
type contentCodec struct {
	roleText func(Content) (role, text string)
}

var customContentTypes = map[ContentType]contentCodec{}

// RegisterContentType registers a custom Content variant's role/text
// projection for the compiler (spec.md Design Notes §9: "custom types
// require registration at process init"). Panics if called twice for the
// same type; call it during process init only.
func RegisterContentType(t ContentType, roleText func(Content) (role, text string)) {
	if _, exists := customContentTypes[t]; exists {
		panic("tract: content type already registered: " + string(t))
	}
	customContentTypes[t] = contentCodec{roleText: roleText}
}

// RoleText projects a Content payload to the (role, text) pair the compiler
// assembles into a Message (spec.md §4.8 step 7).
func (c Content) RoleText() (role, text string) {
	switch c.Type {
	case ContentDialogue:
		return c.Role, c.Text
	case ContentInstruction:
		return "system", c.Text
	case ContentReasoning:
		return "assistant", c.Text
	case ContentToolIO:
		if c.ToolOutput != nil {
			return "tool", string(c.ToolOutput)
		}
		return "assistant", string(c.ToolInput)
	case ContentArtifact:
		return "assistant", c.Text
	case ContentSession:
		return "system", c.Summary
	case ContentFreeform:
		if codec, ok := customContentTypes[c.Type]; ok {
			return codec.roleText(c)
		}
		return "system", string(c.Payload)
	default:
		if codec, ok := customContentTypes[c.Type]; ok {
			return codec.roleText(c)
		}
		return "system", c.Text
	}
}
