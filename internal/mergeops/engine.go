package mergeops

import (
	"context"
	"fmt"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// Engine runs merge/rebase/import plans against one tract's store,
// mirroring compress.Engine's shape (store handles plus an optional chat
// client for the default resolver).
type Engine struct {
	blobs     store.BlobStore
	commits   store.CommitStore
	refs      store.RefStore
	oplog     store.OperationLogStore
	chat      llmclient.ChatClient
	tokenizer compile.TokenCounter
}

// New builds a merge/rebase/import Engine. chat may be nil for callers
// that always supply their own Resolver.
func New(blobs store.BlobStore, commits store.CommitStore, refs store.RefStore, oplog store.OperationLogStore, chat llmclient.ChatClient, tokenizer compile.TokenCounter) *Engine {
	return &Engine{blobs: blobs, commits: commits, refs: refs, oplog: oplog, chat: chat, tokenizer: tokenizer}
}

const resolverSystemPrompt = `You resolve a conflict between two independent edits of the same piece of ` +
	`LLM agent conversation history. Read the ancestor, the current (HEAD) version, and the incoming ` +
	`version, then produce the single merged text a later turn should see. Do not explain your reasoning, ` +
	`output only the merged text.`

// chatResolver wraps a chat client into the default LLM resolver (spec.md
// §4.10: "resolver (LLM by default, or caller-supplied)"). It always
// resolves; it never skips or aborts, since it has no basis to decide a
// conflict isn't worth merging.
func chatResolver(chat llmclient.ChatClient, cfg types.LLMConfig) llmclient.Resolver {
	return func(issueDescription string) (llmclient.Resolution, error) {
		result, err := chat.Chat(context.Background(), []llmclient.ChatMessage{
			{Role: "system", Content: resolverSystemPrompt},
			{Role: "user", Content: issueDescription},
		}, cfg)
		if err != nil {
			return llmclient.Resolution{}, fmt.Errorf("resolver chat: %w", err)
		}
		return llmclient.Resolution{Action: llmclient.ResolutionResolved, ContentText: result.Text()}, nil
	}
}

// resolverOrDefault returns opts' resolver, or the engine's chat-backed
// default if the caller didn't supply one and a chat client is
// configured.
func (e *Engine) resolverOrDefault(r llmclient.Resolver, cfg types.LLMConfig) llmclient.Resolver {
	if r != nil {
		return r
	}
	if e.chat == nil {
		return nil
	}
	return chatResolver(e.chat, cfg)
}
