package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tract-dev/tract/internal/tract"
	"github.com/tract-dev/tract/internal/tractconfig"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Print HEAD each time the database file changes",
	GroupID: "navigate",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := tractconfig.Load(flagDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Close()

		dir := filepath.Dir(cfg.DBPath)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		if err := printHead(cmd.Context(), cfg); err != nil {
			fmt.Println("tract watch:", err)
		}

		for {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) != filepath.Base(cfg.DBPath) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := printHead(cmd.Context(), cfg); err != nil {
					fmt.Println("tract watch:", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Println("tract watch error:", err)
			}
		}
	},
}

// printHead reopens the store just long enough to read HEAD and release
// the single-writer lock (spec.md §5): watch is a thin diagnostic, never
// a second long-lived writer.
func printHead(ctx context.Context, cfg *tractconfig.Config) error {
	t, err := tract.OpenSQLite(ctx, flagTractID, cfg, nil)
	if err != nil {
		return err
	}
	defer t.Close()

	head, err := t.Head(ctx)
	if err != nil {
		fmt.Println("HEAD: (no commits yet)")
		return nil
	}
	fmt.Println("HEAD:", head[:12])
	return nil
}
