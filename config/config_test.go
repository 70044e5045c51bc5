package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != ":8067" || cfg.ExportWidth != 1920 || cfg.ExportHeight != 1080 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Brand.Name != "PT. Trijaya Agung Lestari" {
		t.Errorf("default brand %q", cfg.Brand.Name)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("default storage %q; expected memory", cfg.Storage.Type)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	data := `
listen: ":9000"
export_width: 1280
export_height: 720
brand:
  name: "Test Org"
storage:
  type: sqlite
  path: test.db
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.ExportWidth != 1280 || cfg.ExportHeight != 720 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Brand.Name != "Test Org" {
		t.Errorf("brand override %q", cfg.Brand.Name)
	}
	if cfg.Brand.Credit == "" {
		t.Errorf("unset credit must keep the default")
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.Path != "test.db" {
		t.Errorf("storage override %+v", cfg.Storage)
	}
}

func TestLoadRejectsInvalidExportSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	if err := os.WriteFile(path, []byte("export_width: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("negative export width accepted")
	}
}
