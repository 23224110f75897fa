package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tract"
	"github.com/tract-dev/tract/internal/types"
)

func init() {
	rootCmd.AddCommand(systemCmd, userCmd, assistantCmd, toolCallCmd, toolResultCmd, editCmd)
}

var systemCmd = &cobra.Command{
	Use:     "system <text>",
	Short:   "Record a system/instruction message",
	GroupID: "history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			return t.System(cmd.Context(), args[0], tract.CommitOptions{Message: commitMessage})
		})
	},
}

var userCmd = &cobra.Command{
	Use:     "user <text>",
	Short:   "Record a user dialogue message",
	GroupID: "history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			return t.User(cmd.Context(), args[0], tract.CommitOptions{Message: commitMessage})
		})
	},
}

var assistantCmd = &cobra.Command{
	Use:     "assistant <text>",
	Short:   "Record an assistant dialogue message",
	GroupID: "history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			return t.Assistant(cmd.Context(), args[0], tract.CommitOptions{Message: commitMessage})
		})
	},
}

var toolCallID string

var toolCallCmd = &cobra.Command{
	Use:     "tool-call <name> <arguments-json>",
	Short:   "Record an assistant tool invocation",
	GroupID: "history",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("arguments is not valid JSON: %s", args[1])
		}
		id := toolCallID
		if id == "" {
			return fmt.Errorf("--id is required")
		}
		calls := []types.ToolCall{{ID: id, Name: args[0], Arguments: json.RawMessage(args[1])}}
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			return t.ToolCall(cmd.Context(), calls, tract.CommitOptions{Message: commitMessage})
		})
	},
}

var toolResultCmd = &cobra.Command{
	Use:     "tool-result <tool-name> <tool-call-id> <output>",
	Short:   "Record a tool's output against the call that requested it",
	GroupID: "history",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			return t.ToolResult(cmd.Context(), args[0], args[1], []byte(args[2]), tract.CommitOptions{Message: commitMessage})
		})
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <target-hash> <text>",
	Short:   "Supersede a prior commit's content with a new EDIT commit",
	GroupID: "history",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commitAndPrint(cmd, func(t *tract.Tract) (*types.CommitInfo, error) {
			content := types.Content{Type: types.ContentDialogue, Role: "assistant", Text: args[1]}
			return t.Edit(cmd.Context(), args[0], content, tract.CommitOptions{Message: commitMessage})
		})
	},
}

var commitMessage string

func init() {
	for _, c := range []*cobra.Command{systemCmd, userCmd, assistantCmd, toolCallCmd, toolResultCmd, editCmd} {
		c.Flags().StringVar(&commitMessage, "message", "", "free-form commit message")
	}
	toolCallCmd.Flags().StringVar(&toolCallID, "id", "", "tool call id referenced by the matching tool-result")
}

func commitAndPrint(cmd *cobra.Command, fn func(*tract.Tract) (*types.CommitInfo, error)) error {
	t, err := openTract(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	info, err := fn(t)
	if err != nil {
		return err
	}
	return printResult(info)
}
