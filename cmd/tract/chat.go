package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:     "chat <message>",
	Short:   "Commit a user message, call the configured LLM, and commit its reply",
	GroupID: "history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()

		resp, err := t.Chat(cmd.Context(), args[0], nil, nil)
		if err != nil {
			return err
		}
		return printResult(resp)
	},
}
