package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/compress"
	"github.com/tract-dev/tract/internal/gc"
	"github.com/tract-dev/tract/internal/mergeops"
	"github.com/tract-dev/tract/internal/timeparsing"
)

var reviewOnly bool

func init() {
	rootCmd.AddCommand(mergeCmd, rebaseCmd, importCmd, compressCmd, gcCmd)

	for _, c := range []*cobra.Command{mergeCmd, rebaseCmd, importCmd, compressCmd, gcCmd} {
		c.Flags().BoolVar(&reviewOnly, "review", false, "compute the pending operation and print its status without committing")
	}

	mergeCmd.Flags().StringVar(&mergeGuidance, "guidance", "", "freeform guidance passed to the conflict resolver")

	compressCmd.Flags().StringSliceVar(&compressCommits, "commits", nil, "explicit commit hashes to compress (highest priority range selector)")
	compressCmd.Flags().StringVar(&compressFrom, "from", "", "start of the commit range to compress")
	compressCmd.Flags().StringVar(&compressTo, "to", "", "end of the commit range to compress")
	compressCmd.Flags().StringSliceVar(&compressPreserve, "preserve", nil, "commit hashes to force-preserve regardless of annotation")
	compressCmd.Flags().BoolVar(&compressTwoStage, "two-stage", false, "run a first LLM pass that produces shared guidance before summarizing")
	compressCmd.Flags().StringVar(&compressGuidance, "guidance", "", "freeform guidance passed to the summarizing LLM")

	gcCmd.Flags().StringSliceVar(&gcPreserve, "preserve", nil, "additional hashes to protect regardless of reachability")
	gcCmd.Flags().StringVar(&gcOrphanRetention, "orphan-retention-days", "", "minimum orphan age before it becomes collectible (e.g. \"7\" or \"2 weeks ago\")")
}

var mergeGuidance string

var mergeCmd = &cobra.Command{
	Use:     "merge <source-branch>",
	Short:   "Merge a branch into HEAD",
	GroupID: "rewrite",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		result, pending, err := t.Merge(cmd.Context(), args[0], mergeops.MergeOptions{
			Guidance: mergeGuidance, Review: reviewOnly,
		})
		if err != nil {
			return err
		}
		if reviewOnly {
			fmt.Printf("pending merge, status=%s\n", pending.Status())
			return nil
		}
		return printResult(result)
	},
}

var rebaseCmd = &cobra.Command{
	Use:     "rebase <target-branch>",
	Short:   "Replay HEAD's unique commits onto target-branch",
	GroupID: "rewrite",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		result, pending, err := t.Rebase(cmd.Context(), args[0], mergeops.RebaseOptions{Review: reviewOnly})
		if err != nil {
			return err
		}
		if reviewOnly {
			fmt.Printf("pending rebase, status=%s\n", pending.Status())
			return nil
		}
		return printResult(result)
	},
}

var importCmd = &cobra.Command{
	Use:     "import <source-commit-hash>",
	Short:   "Cherry-pick a single commit from another branch or tract",
	GroupID: "rewrite",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		result, pending, err := t.ImportCommit(cmd.Context(), args[0], mergeops.ImportOptions{Review: reviewOnly})
		if err != nil {
			return err
		}
		if reviewOnly {
			fmt.Printf("pending import, status=%s\n", pending.Status())
			return nil
		}
		return printResult(result)
	},
}

var (
	compressCommits  []string
	compressFrom     string
	compressTo       string
	compressPreserve []string
	compressTwoStage bool
	compressGuidance string
)

var compressCmd = &cobra.Command{
	Use:     "compress",
	Short:   "Summarize a commit range into compressed summary commit(s)",
	GroupID: "rewrite",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		result, pending, err := t.Compress(cmd.Context(), compress.Options{
			Commits: compressCommits, FromCommit: compressFrom, ToCommit: compressTo,
			Preserve: compressPreserve, TwoStage: compressTwoStage, Guidance: compressGuidance,
			Review: reviewOnly,
		})
		if err != nil {
			return err
		}
		if reviewOnly {
			fmt.Printf("pending compress, status=%s\n", pending.Status())
			return nil
		}
		return printResult(result)
	},
}

var (
	gcPreserve        []string
	gcOrphanRetention string
)

var gcCmd = &cobra.Command{
	Use:     "gc",
	Short:   "Sweep unreachable commits and blobs",
	GroupID: "rewrite",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		opts := gc.Options{Preserve: gcPreserve, Now: now, Review: reviewOnly}
		if gcOrphanRetention != "" {
			days, err := parseRetentionDays(gcOrphanRetention, now)
			if err != nil {
				return fmt.Errorf("parse --orphan-retention-days: %w", err)
			}
			opts.OrphanRetentionDays = days
		}

		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		result, pending, err := t.GC(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if reviewOnly {
			fmt.Printf("pending gc, status=%s\n", pending.Status())
			return nil
		}
		return printResult(result)
	},
}

// parseRetentionDays accepts either a bare integer day count or a
// relative time expression (spec.md's orphan_retention_days is a plain
// int; the CLI additionally takes the same natural-language fallback
// chain as --at-time so an operator can type "2 weeks ago" instead of "14").
func parseRetentionDays(s string, now time.Time) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	at, err := timeparsing.ParseRelativeTime(s, now)
	if err != nil {
		return 0, err
	}
	days := int(now.Sub(at).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, nil
}
