package compress

import (
	"context"
	"fmt"
	"strings"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// buildTextBlock renders a group's commits into the role-labelled text a
// summarisation prompt is built from (spec.md §4.9 step 5): labels carry
// tool call names/arguments and tool result call IDs so the summariser
// doesn't lose tool context it never sees as structured data.
func buildTextBlock(ctx context.Context, blobs store.BlobStore, commits []*types.Commit) (string, error) {
	var b strings.Builder
	for i, c := range commits {
		blob, err := blobs.Get(ctx, c.ContentHash)
		if err != nil {
			return "", fmt.Errorf("load content for %s: %w", c.CommitHash, err)
		}
		content, err := types.DecodeContent(blob.PayloadJSON)
		if err != nil {
			return "", fmt.Errorf("decode content for %s: %w", c.CommitHash, err)
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		role, text := content.RoleText()
		b.WriteString(strings.ToUpper(role))
		b.WriteString(": ")
		b.WriteString(text)
		writeToolMetadata(&b, content)
	}
	return b.String(), nil
}

func writeToolMetadata(b *strings.Builder, content types.Content) {
	for _, tc := range content.ToolCalls {
		fmt.Fprintf(b, "\n  [tool_call %s: %s(%s)]", tc.ID, tc.Name, string(tc.Arguments))
	}
	if content.ToolCallID != "" {
		fmt.Fprintf(b, "\n  [tool_result for %s]", content.ToolCallID)
	}
	if content.Type == types.ContentToolIO {
		switch {
		case content.ToolOutput != nil:
			fmt.Fprintf(b, "\n  [tool_result %s: %s]", content.ToolName, string(content.ToolOutput))
		default:
			fmt.Fprintf(b, "\n  [tool_call %s(%s)]", content.ToolName, string(content.ToolInput))
		}
	}
}
