package tract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/store/memory"
	"github.com/tract-dev/tract/internal/types"
)

type fakeChat struct {
	reply string
}

func (f *fakeChat) Chat(ctx context.Context, messages []llmclient.ChatMessage, config types.LLMConfig) (*llmclient.ChatResult, error) {
	return &llmclient.ChatResult{
		Choices: []llmclient.Choice{{Message: llmclient.ResponseMessage{Content: f.reply}}},
		Usage:   &types.Usage{TotalTokens: 10},
	}, nil
}

func TestChatRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := Open("t-chat", memory.New(), nil, &fakeChat{reply: "a helpful reply"})

	resp, err := tr.Chat(ctx, "hello", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "a helpful reply", resp.Text)
	require.NotNil(t, resp.Usage)

	views, err := tr.Log(ctx, LogOptions{})
	require.NoError(t, err)
	require.Len(t, views, 2) // user + assistant
}

func TestChatWithoutClientErrors(t *testing.T) {
	ctx := context.Background()
	tr := newTestTract(t)
	_, err := tr.Chat(ctx, "hi", nil, nil)
	require.ErrorIs(t, err, types.ErrLLMConfigError)
}

func TestChatExtractsThinkTagReasoning(t *testing.T) {
	ctx := context.Background()
	tr := Open("t-chat-reason", memory.New(), nil, &fakeChat{reply: "<think>reasoning here</think>final answer"})

	resp, err := tr.Chat(ctx, "hello", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "reasoning here", resp.Reasoning)
	require.NotNil(t, resp.ReasoningCommit)

	views, err := tr.Log(ctx, LogOptions{})
	require.NoError(t, err)
	require.Len(t, views, 3) // user + assistant + reasoning
}
