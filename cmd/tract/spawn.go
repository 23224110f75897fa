package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tract"
	"github.com/tract-dev/tract/internal/types"
)

var (
	spawnDisplayName string
	spawnInherit     string
)

func init() {
	rootCmd.AddCommand(spawnCmd, childrenCmd, spawnOriginCmd)
	spawnCmd.Flags().StringVar(&spawnDisplayName, "name", "", "display name for the child tract (defaults to purpose)")
	spawnCmd.Flags().StringVar(&spawnInherit, "inherit", "none", "inheritance mode: none, head_snapshot, or full_clone")
}

var spawnCmd = &cobra.Command{
	Use:     "spawn <purpose>",
	Short:   "Create a child tract for a sub-task",
	GroupID: "spawn",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := types.InheritanceMode(spawnInherit)
		switch mode {
		case types.InheritNone, types.InheritHeadSnapshot, types.InheritFullClone:
		default:
			return fmt.Errorf("invalid --inherit %q: want none, head_snapshot, or full_clone", spawnInherit)
		}

		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()

		sp, child, err := t.Spawn(cmd.Context(), tract.SpawnOptions{
			Purpose: args[0], DisplayName: spawnDisplayName, InheritanceMode: mode,
		})
		if err != nil {
			return err
		}
		defer child.Close()
		return printResult(sp)
	},
}

var childrenCmd = &cobra.Command{
	Use:     "children",
	Short:   "List tracts spawned from this one",
	GroupID: "spawn",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		children, err := t.Children(cmd.Context())
		if err != nil {
			return err
		}
		if flagJSON {
			return printResult(children)
		}
		if len(children) == 0 {
			fmt.Println("(no children)")
			return nil
		}
		for _, c := range children {
			fmt.Println(formatText(c))
		}
		return nil
	},
}

var spawnOriginCmd = &cobra.Command{
	Use:     "spawn-origin",
	Short:   "Show the spawn pointer that created this tract, if any",
	GroupID: "spawn",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		origin, err := t.SpawnOrigin(cmd.Context())
		if err != nil {
			return err
		}
		if origin == nil {
			fmt.Println("(no spawn origin: this tract was not spawned)")
			return nil
		}
		return printResult(origin)
	},
}
