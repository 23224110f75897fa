package tractconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDefaultThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDefault(dir); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

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

func TestWriteDefaultRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("db_path = \"x.db\""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteDefault(dir); err == nil {
		t.Error("WriteDefault should refuse to overwrite an existing config.toml")
	}
}
