package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tractconfig"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Write a starter config.toml into --dir",
	GroupID: "navigate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tractconfig.WriteDefault(flagDir); err != nil {
			return err
		}
		fmt.Println("wrote", flagDir+"/config.toml")
		return nil
	},
}
