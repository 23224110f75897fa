package types

// LLMConfig holds the parameters of one LLM call (spec.md §6). Fields are
// pointers so "unset" (inherit from the next link in the resolution
// chain) is distinguishable from "set to the zero value".
type LLMConfig struct {
	Model             *string  `json:"model,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// llmAliases maps a recognised alternate key to its canonical field
// (spec.md §8: "recognised aliases (stop→stop_sequences,
// max_completion_tokens→max_tokens) collapse").
var llmAliases = map[string]string{
	"stop":                   "stop_sequences",
	"max_completion_tokens":  "max_tokens",
}

// llmPlumbingKeys are API call-shape keys that never belong in an
// LLMConfig (spec.md §8: "API plumbing keys (messages, tools, stream,
// response_format) are dropped").
var llmPlumbingKeys = map[string]bool{
	"messages": true, "tools": true, "stream": true, "response_format": true,
}

// llmKnownKeys are the canonical field names, used to decide what falls
// through to Extra.
var llmKnownKeys = map[string]bool{
	"model": true, "temperature": true, "top_p": true, "max_tokens": true,
	"stop_sequences": true, "frequency_penalty": true, "presence_penalty": true,
	"top_k": true, "seed": true,
}

// ToDict serializes an LLMConfig to a plain map, the wire shape used when
// merging configs or forwarding to a chat() call's **kwargs (spec.md §6).
func (c LLMConfig) ToDict() map[string]any {
	out := map[string]any{}
	if c.Model != nil {
		out["model"] = *c.Model
	}
	if c.Temperature != nil {
		out["temperature"] = *c.Temperature
	}
	if c.TopP != nil {
		out["top_p"] = *c.TopP
	}
	if c.MaxTokens != nil {
		out["max_tokens"] = *c.MaxTokens
	}
	if c.StopSequences != nil {
		out["stop_sequences"] = c.StopSequences
	}
	if c.FrequencyPenalty != nil {
		out["frequency_penalty"] = *c.FrequencyPenalty
	}
	if c.PresencePenalty != nil {
		out["presence_penalty"] = *c.PresencePenalty
	}
	if c.TopK != nil {
		out["top_k"] = *c.TopK
	}
	if c.Seed != nil {
		out["seed"] = *c.Seed
	}
	for k, v := range c.Extra {
		out[k] = v
	}
	return out
}

// LLMConfigFromDict parses a plain map into an LLMConfig, collapsing
// aliases, dropping API plumbing keys, and routing anything else to
// Extra (spec.md §8 round-trip testable property).
func LLMConfigFromDict(in map[string]any) LLMConfig {
	var c LLMConfig
	extra := map[string]any{}

	for rawKey, v := range in {
		key := rawKey
		if canon, ok := llmAliases[rawKey]; ok {
			key = canon
		}
		if llmPlumbingKeys[key] {
			continue
		}
		switch key {
		case "model":
			if s, ok := v.(string); ok {
				c.Model = &s
			}
		case "temperature":
			if f, ok := toFloat(v); ok {
				c.Temperature = &f
			}
		case "top_p":
			if f, ok := toFloat(v); ok {
				c.TopP = &f
			}
		case "max_tokens":
			if i, ok := toInt(v); ok {
				c.MaxTokens = &i
			}
		case "stop_sequences":
			c.StopSequences = toStringSlice(v)
		case "frequency_penalty":
			if f, ok := toFloat(v); ok {
				c.FrequencyPenalty = &f
			}
		case "presence_penalty":
			if f, ok := toFloat(v); ok {
				c.PresencePenalty = &f
			}
		case "top_k":
			if i, ok := toInt(v); ok {
				c.TopK = &i
			}
		case "seed":
			if i, ok := toInt(v); ok {
				i64 := int64(i)
				c.Seed = &i64
			}
		default:
			extra[key] = v
		}
	}
	if len(extra) > 0 {
		c.Extra = extra
	}
	return c
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Merge overlays non-nil/non-empty fields of override onto c, implementing
// one link of the LLM-call resolution chain (spec.md §6: "call-site
// kwargs > llm_config= argument > operation config > tract default").
// c is the lower-priority base; override wins on any field it sets.
func (c LLMConfig) Merge(override LLMConfig) LLMConfig {
	out := c
	if override.Model != nil {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.StopSequences != nil {
		out.StopSequences = override.StopSequences
	}
	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	if override.Seed != nil {
		out.Seed = override.Seed
	}
	if len(override.Extra) > 0 {
		merged := map[string]any{}
		for k, v := range out.Extra {
			merged[k] = v
		}
		for k, v := range override.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}

// OperationConfigs groups per-operation LLM defaults (spec.md §6).
type OperationConfigs struct {
	Chat        *LLMConfig `json:"chat,omitempty"`
	Compress    *LLMConfig `json:"compress,omitempty"`
	Merge       *LLMConfig `json:"merge,omitempty"`
	Orchestrate *LLMConfig `json:"orchestrate,omitempty"`
}

// ResolveLLMConfig implements the full resolution chain of spec.md §6 for
// one named operation: tractDefault < operationConfig < llmConfigArg <
// callSiteKwargs, each layer optional.
func ResolveLLMConfig(tractDefault LLMConfig, operationConfig *LLMConfig, llmConfigArg *LLMConfig, callSiteKwargs *LLMConfig) LLMConfig {
	resolved := tractDefault
	if operationConfig != nil {
		resolved = resolved.Merge(*operationConfig)
	}
	if llmConfigArg != nil {
		resolved = resolved.Merge(*llmConfigArg)
	}
	if callSiteKwargs != nil {
		resolved = resolved.Merge(*callSiteKwargs)
	}
	return resolved
}
