package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tract"
)

var (
	logQuery  string
	logLimit  int
	logEvents string
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().StringVar(&logQuery, "query", "", "filter expression, e.g. \"operation=append and priority=PINNED\"")
	logCmd.Flags().IntVar(&logLimit, "limit", 0, "maximum number of commits to show (0 = unlimited)")
	logCmd.Flags().StringVar(&logEvents, "events", "", "show the operation-event audit trail for a commit hash instead of the commit log")
}

var logCmd = &cobra.Command{
	Use:     "log",
	Short:   "List commits, optionally filtered by a query expression",
	GroupID: "navigate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()

		if logEvents != "" {
			events, err := t.ShowEvents(cmd.Context(), logEvents)
			if err != nil {
				return err
			}
			return printResult(events)
		}

		views, err := t.Log(cmd.Context(), tract.LogOptions{Query: logQuery, Limit: logLimit})
		if err != nil {
			return err
		}
		if flagJSON {
			return printResult(views)
		}
		if len(views) == 0 {
			fmt.Println("(no commits)")
			return nil
		}
		return printResult(views)
	},
}
