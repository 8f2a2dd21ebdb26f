package main

import (
	"os"
	"path/filepath"
	"testing"

	"slnprune/internal/config"
)

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()

	path, err := initConfig(dir, false)
	if err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "slnprune.json") {
		t.Errorf("path = %q", path)
	}

	cfg, err := config.LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output.Suffix != ".Pruned" || cfg.Manifest.Platform != "Any CPU" {
		t.Errorf("loaded config = %+v, want defaults", cfg)
	}
}

func TestInitConfig_Existing(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "slnprune.yaml")
	if err := os.WriteFile(existing, []byte("output:\n  suffix: .Slim\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := initConfig(dir, false); err == nil {
		t.Fatal("initConfig() over an existing file should fail without force")
	}
	if _, err := os.Stat(filepath.Join(dir, "slnprune.json")); !os.IsNotExist(err) {
		t.Errorf("slnprune.json written despite the existing config: %v", err)
	}

	if _, err := initConfig(dir, true); err != nil {
		t.Fatalf("initConfig(force) error = %v", err)
	}
}

func TestInitConfig_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := initConfig(file, false); err == nil {
		t.Error("initConfig() on a file should fail")
	}
}
