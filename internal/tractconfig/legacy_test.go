package tractconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToLegacyYAML(t *testing.T) {
	dir := t.TempDir()
	content := "db_path: legacy.db\nstrict_tags: true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "legacy.db" {
		t.Errorf("DBPath = %q, want legacy.db", cfg.DBPath)
	}
	if !cfg.StrictTags {
		t.Error("StrictTags should be true from legacy config.yaml")
	}
}

func TestLoadTOMLOverridesLegacyYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("db_path: legacy.db\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`db_path = "current.db"`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "current.db" {
		t.Errorf("DBPath = %q, want current.db (config.toml should win over legacy yaml)", cfg.DBPath)
	}
}

func TestLoadLegacyYAMLMissingReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	legacy := loadLegacyYAML(dir)
	if legacy.DBPath != "" || legacy.StrictTags {
		t.Errorf("loadLegacyYAML on missing file = %+v, want zero value", legacy)
	}
}
