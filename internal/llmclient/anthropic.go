package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/tract-dev/tract/internal/telemetry"
	"github.com/tract-dev/tract/internal/types"
)

const defaultMaxElapsed = 30 * time.Second

// AnthropicClient adapts the Anthropic SDK to ChatClient (spec.md §6),
// generalizing haiku.go's single fixed-prompt call into an arbitrary
// chat(messages, config) round trip.
type AnthropicClient struct {
	client     anthropic.Client
	maxElapsed time.Duration
}

// NewAnthropicClient builds a client from an API key (env
// ANTHROPIC_API_KEY, if set, is left to the SDK's own resolution —
// callers pass an explicit key here when one was supplied via
// TractConfig).
func NewAnthropicClient(apiKey string) *AnthropicClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	anthMetricsOnce.Do(initAnthMetrics)
	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		maxElapsed: defaultMaxElapsed,
	}
}

var _ ChatClient = (*AnthropicClient)(nil)

// Chat implements ChatClient.
func (a *AnthropicClient) Chat(ctx context.Context, messages []ChatMessage, config types.LLMConfig) (*ChatResult, error) {
	tracer := telemetry.Tracer("github.com/tract-dev/tract/llmclient")
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()

	model := "claude-3-5-haiku-latest"
	if config.Model != nil {
		model = *config.Model
	}
	span.SetAttributes(attribute.String("tract.llm.model", model))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		Messages:  toAnthropicMessages(messages),
	}
	if config.MaxTokens != nil {
		params.MaxTokens = int64(*config.MaxTokens)
	}
	if config.Temperature != nil {
		params.Temperature = anthropic.Float(*config.Temperature)
	}
	if config.TopP != nil {
		params.TopP = anthropic.Float(*config.TopP)
	}
	if config.TopK != nil {
		params.TopK = anthropic.Int(int64(*config.TopK))
	}
	if len(config.StopSequences) > 0 {
		params.StopSequences = config.StopSequences
	}

	if sys, ok := systemPrompt(messages); ok {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	var message *anthropic.Message
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = a.maxElapsed

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		t0 := time.Now()
		m, callErr := a.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())
		modelAttr := attribute.String("tract.llm.model", model)
		anthMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr))

		if callErr == nil {
			message = m
			anthMetrics.inputTokens.Add(ctx, m.Usage.InputTokens, metric.WithAttributes(modelAttr))
			anthMetrics.outputTokens.Add(ctx, m.Usage.OutputTokens, metric.WithAttributes(modelAttr))
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if !isRetryableAnthropicErr(callErr) {
			return backoff.Permanent(callErr)
		}
		return callErr
	}, backoff.WithContext(bo, ctx))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("anthropic chat after %d attempt(s): %w", attempts, err)
	}
	span.SetAttributes(attribute.Int("tract.llm.attempts", attempts))

	return anthropicResultToChatResult(message), nil
}

func toAnthropicMessages(messages []ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			continue // lifted into params.System separately
		}
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func systemPrompt(messages []ChatMessage) (string, bool) {
	for _, m := range messages {
		if m.Role == "system" {
			return m.Content, true
		}
	}
	return "", false
}

func anthropicResultToChatResult(m *anthropic.Message) *ChatResult {
	var text string
	if len(m.Content) > 0 && m.Content[0].Type == "text" {
		text = m.Content[0].Text
	}
	return &ChatResult{
		Choices: []Choice{{Message: ResponseMessage{Content: text}}},
		Usage: &types.Usage{
			PromptTokens:     int(m.Usage.InputTokens),
			CompletionTokens: int(m.Usage.OutputTokens),
			TotalTokens:      int(m.Usage.InputTokens + m.Usage.OutputTokens),
		},
		Model: string(m.Model),
	}
}

func isRetryableAnthropicErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
