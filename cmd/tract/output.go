package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tract-dev/tract/internal/oplog"
	"github.com/tract-dev/tract/internal/query"
	"github.com/tract-dev/tract/internal/types"
)

// printResult renders v as indented JSON under --json, or as a short
// human-readable line (text mode is meant for a terminal, not parsing;
// --json is the stable contract).
func printResult(v any) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(formatText(v))
	return nil
}

func formatText(v any) string {
	switch r := v.(type) {
	case *types.CommitInfo:
		return fmt.Sprintf("%s %s (%s)", r.CommitHash[:12], r.Operation, r.CreatedAt.Format("2006-01-02T15:04:05Z"))
	case *types.CompressResult:
		return fmt.Sprintf("compression %s: %d commits -> %d summary commit(s), %d -> %d tokens (%.2fx)",
			r.CompressionID[:12], len(r.SourceCommits), len(r.SummaryCommits), r.OriginalTokens, r.CompressedTokens, r.CompressionRatio)
	case *types.MergeResult:
		if r.NoOp {
			return "merge: no-op, already up to date"
		}
		if r.FastForward {
			return fmt.Sprintf("merge: fast-forwarded to %s", r.MergeCommit[:12])
		}
		return fmt.Sprintf("merge: %s (%d conflict(s) resolved)", r.MergeCommit[:12], r.ConflictCount)
	case *types.RebaseResult:
		return fmt.Sprintf("rebase: new tip %s (%d commit(s) replayed)", r.NewTip[:12], len(r.ReplayedTo))
	case *types.ImportResult:
		return fmt.Sprintf("import: %d commit(s) imported, %d skipped", len(r.ImportedCommits), len(r.Skipped))
	case *types.GCResult:
		return fmt.Sprintf("gc: deleted %d commit(s), %d blob(s), excluded %d", len(r.DeletedCommits), len(r.DeletedBlobs), len(r.Excluded))
	case *types.DiffResult:
		return fmt.Sprintf("%d commit(s) on %s not reachable from %s", len(r.Commits), r.Tip[:12], r.Base[:12])
	case *types.ChatResponse:
		return r.Text
	case *types.SpawnPointer:
		return fmt.Sprintf("spawned %s (%s, %s)", r.ChildTractID, r.Purpose, r.InheritanceMode)
	case []query.CommitView:
		lines := make([]string, len(r))
		for i, view := range r {
			lines[i] = formatCommitView(view)
		}
		return joinLines(lines)
	case []oplog.Event:
		lines := make([]string, len(r))
		for i, ev := range r {
			lines[i] = fmt.Sprintf("%s %s at %s (%d sources, %d results)",
				ev.EventID[:12], ev.EventType, ev.CreatedAt.Format("2006-01-02T15:04:05Z"), len(ev.Sources), len(ev.Results))
		}
		return joinLines(lines)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatCommitView(view query.CommitView) string {
	c := view.Commit
	line := fmt.Sprintf("%s %-10s %-10s seq=%d", c.CommitHash[:12], c.Operation, c.ContentType, c.Sequence)
	if view.Priority != "" {
		line += " priority=" + string(view.Priority)
	}
	if len(view.Tags) > 0 {
		line += " tags=" + fmt.Sprint(view.Tags)
	}
	if c.Message != "" {
		line += " " + c.Message
	}
	return line
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
