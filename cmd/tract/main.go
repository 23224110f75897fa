// Package main is the tract CLI: a github.com/spf13/cobra command tree
// over internal/tract, grounded on steveyegge-beads' cmd/bd command
// registration conventions (persistent flags, cobra.Group sections) but
// with RunE returning errors instead of cmd/bd's os.Exit/daemon-routing
// machinery, which has no analogue here (spec.md §5 is a single-writer
// embedded store, not a client/daemon split).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/llmclient"
	"github.com/tract-dev/tract/internal/tract"
	"github.com/tract-dev/tract/internal/tractconfig"
)

var (
	flagDir     string
	flagTractID string
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:           "tract",
	Short:         "Content-addressed version control for LLM context windows",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "tract:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", ".", "directory holding config.toml and the tract database")
	rootCmd.PersistentFlags().StringVar(&flagTractID, "tract-id", "default", "tract_id to operate on")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON instead of text")

	rootCmd.AddGroup(
		&cobra.Group{ID: "history", Title: "Recording History:"},
		&cobra.Group{ID: "navigate", Title: "Navigating & Reading:"},
		&cobra.Group{ID: "rewrite", Title: "Rewriting History:"},
		&cobra.Group{ID: "spawn", Title: "Spawning & Automation:"},
	)
}

// openTract resolves config.toml under --dir, opens the tract's SQLite
// store under the single-writer lockfile discipline (spec.md §5), and
// wires an Anthropic chat client when ANTHROPIC_API_KEY is set. Callers
// own the returned Tract and must Close it.
func openTract(cmd *cobra.Command) (*tract.Tract, error) {
	cfg, err := tractconfig.Load(flagDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var chat llmclient.ChatClient
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		chat = llmclient.NewAnthropicClient(key)
	}
	return tract.OpenSQLite(cmd.Context(), flagTractID, cfg, chat)
}
