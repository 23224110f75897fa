package tractconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// WriteDefault writes a starter config.toml into dir, encoded with
// github.com/BurntSushi/toml (the same library steveyegge-beads uses
// for its formula/recipe TOML files). It refuses to overwrite an
// existing config.toml, so `tract init` is safe to re-run.
func WriteDefault(dir string) error {
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cfg := defaults()
	cfg.DBPath = "tract.db"
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
