package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/compile"
	"github.com/tract-dev/tract/internal/timeparsing"
)

var (
	compileAtTime          string
	compileAtCommit        string
	compileIncludeReason   bool
	compileIncludeEditAnno bool
)

func init() {
	rootCmd.AddCommand(compileCmd, diffCmd)

	compileCmd.Flags().StringVar(&compileAtTime, "at-time", "", "compile as of a point in time (RFC3339, a bare date, or a relative expression like \"2 days ago\")")
	compileCmd.Flags().StringVar(&compileAtCommit, "at-commit", "", "compile as of a specific commit hash instead of HEAD")
	compileCmd.Flags().BoolVar(&compileIncludeReason, "include-reasoning", false, "include reasoning commits in the compiled context")
	compileCmd.Flags().BoolVar(&compileIncludeEditAnno, "include-edit-annotations", false, "annotate folded EDIT commits instead of silently superseding them")
}

var compileCmd = &cobra.Command{
	Use:     "compile",
	Short:   "Project the tract's history into an ordered message list",
	GroupID: "navigate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()

		opts := compile.Options{
			IncludeReasoning:       compileIncludeReason,
			IncludeEditAnnotations: compileIncludeEditAnno,
		}
		if compileAtTime != "" {
			at, err := timeparsing.ParseRelativeTime(compileAtTime, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("parse --at-time: %w", err)
			}
			opts.AtTime = &at
		}
		if compileAtCommit != "" {
			opts.AtCommit = &compileAtCommit
		}

		compiled, err := t.Compile(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if flagJSON {
			return printResult(compiled)
		}
		for _, m := range compiled.Messages {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
		fmt.Printf("-- %d message(s), %d token(s) (%s) --\n", len(compiled.Messages), compiled.TokenCount, compiled.TokenSource)
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:     "diff <tip-hash> <base-hash>",
	Short:   "List commits reachable from tip but not from base",
	GroupID: "navigate",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		diff, err := t.Diff(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printResult(diff)
	},
}
