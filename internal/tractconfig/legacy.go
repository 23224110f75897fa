package tractconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LegacyConfig is the pre-config.toml on-disk shape. Grounded on
// steveyegge-beads/internal/config/local_config.go's LocalConfig: a
// small direct-read struct for callers that need config values before
// (or instead of) going through Load's viper resolution.
type LegacyConfig struct {
	DBPath            string `yaml:"db_path"`
	TokenizerEncoding string `yaml:"tokenizer_encoding"`
	CommitReasoning   bool   `yaml:"commit_reasoning"`
	StrictTags        bool   `yaml:"strict_tags"`
}

// loadLegacyYAML reads dir/config.yaml directly, bypassing viper.
// Returns a zero-valued LegacyConfig (not nil) if the file is absent or
// unparsable, mirroring LoadLocalConfig's "never error, just empty"
// contract: a tract directory that predates config.toml should open
// with built-in defaults rather than fail.
func loadLegacyYAML(dir string) *LegacyConfig {
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		return &LegacyConfig{}
	}
	var cfg LegacyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LegacyConfig{}
	}
	return &cfg
}
