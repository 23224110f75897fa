package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tract"
)

func init() {
	rootCmd.AddCommand(branchCmd, checkoutCmd, detachCmd, headCmd)
	branchCmd.AddCommand(branchCreateCmd, branchDeleteCmd, branchListCmd)
}

var branchCmd = &cobra.Command{
	Use:     "branch",
	Short:   "Create, list, or delete branches",
	GroupID: "navigate",
}

var branchCreateCmd = &cobra.Command{
	Use:   "create <name> <commit-hash>",
	Short: "Point a new branch at a commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		if err := t.CreateBranch(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("branch %s -> %s\n", args[0], args[1][:12])
		return nil
	},
}

var branchForce bool

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a branch ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		return t.DeleteBranch(cmd.Context(), args[0], branchForce)
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every branch ref",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		refs, err := t.ListBranches(cmd.Context())
		if err != nil {
			return err
		}
		for _, ref := range refs {
			hash := "(detached)"
			if ref.CommitHash != nil {
				hash = (*ref.CommitHash)[:12]
			}
			fmt.Printf("%s -> %s\n", ref.RefName, hash)
		}
		return nil
	},
}

var checkoutCmd = &cobra.Command{
	Use:     "checkout <branch>",
	Short:   "Attach HEAD to an existing branch",
	GroupID: "navigate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		return t.Checkout(cmd.Context(), args[0])
	},
}

var detachCmd = &cobra.Command{
	Use:     "detach <commit-hash>",
	Short:   "Point HEAD directly at a commit, detaching it from any branch",
	GroupID: "navigate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		return t.DetachCheckout(cmd.Context(), args[0])
	},
}

var headCmd = &cobra.Command{
	Use:     "head",
	Short:   "Print the commit HEAD currently resolves to",
	GroupID: "navigate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := openTract(cmd)
		if err != nil {
			return err
		}
		defer t.Close()
		hash, err := t.Head(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	branchDeleteCmd.Flags().BoolVar(&branchForce, "force", false, "force the delete (HEAD's current branch is refused even with --force)")
}
