package tractconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenizerEncoding != defaultTokenizerEncoding {
		t.Errorf("TokenizerEncoding = %q, want %q", cfg.TokenizerEncoding, defaultTokenizerEncoding)
	}
	if !cfg.CommitReasoning {
		t.Error("CommitReasoning should default true")
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	content := `
db_path = "custom.db"
strict_tags = true

[token_budget]
max_tokens = 8000

[operation_configs.compress]
model = "claude-haiku"
temperature = 0.2
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "custom.db" {
		t.Errorf("DBPath = %q, want custom.db", cfg.DBPath)
	}
	if !cfg.StrictTags {
		t.Error("StrictTags should be true")
	}
	if cfg.TokenBudget.MaxTokens == nil || *cfg.TokenBudget.MaxTokens != 8000 {
		t.Errorf("TokenBudget.MaxTokens = %v, want 8000", cfg.TokenBudget.MaxTokens)
	}
	oc := cfg.OperationConfigs.ToOperationConfigs()
	if oc.Compress == nil || oc.Compress.Model == nil || *oc.Compress.Model != "claude-haiku" {
		t.Errorf("Compress config = %+v, want model claude-haiku", oc.Compress)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := `db_path = "from-file.db"`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("TRACT_DB_PATH", "from-env.db")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-env.db" {
		t.Errorf("DBPath = %q, want from-env.db (env should win)", cfg.DBPath)
	}
}
