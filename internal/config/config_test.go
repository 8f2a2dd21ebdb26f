package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Output.Suffix != ".Pruned" {
		t.Errorf("Output.Suffix = %q, want %q", cfg.Output.Suffix, ".Pruned")
	}
	if !cfg.Output.CopyBuildSupportFiles {
		t.Error("CopyBuildSupportFiles should be enabled by default")
	}
	if cfg.Output.Archive {
		t.Error("Archive should be disabled by default")
	}
	if len(cfg.Manifest.Configurations) != 2 {
		t.Errorf("Manifest.Configurations = %v, want Debug and Release", cfg.Manifest.Configurations)
	}
	if cfg.Manifest.Platform != "Any CPU" {
		t.Errorf("Manifest.Platform = %q, want %q", cfg.Manifest.Platform, "Any CPU")
	}
	if !cfg.Identity.Deterministic {
		t.Error("Identity.Deterministic should be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad version", func(c *Config) { c.Version = 7 }, true},
		{"zero parallelism", func(c *Config) { c.Analysis.Parallelism = 0 }, true},
		{"empty suffix", func(c *Config) { c.Output.Suffix = "  " }, true},
		{"no configurations", func(c *Config) { c.Manifest.Configurations = nil }, true},
		{"pipe in configuration", func(c *Config) { c.Manifest.Configurations = []string{"Debug|x"} }, true},
		{"empty platform", func(c *Config) { c.Manifest.Platform = "" }, true},
		{"single configuration", func(c *Config) { c.Manifest.Configurations = []string{"Release"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output.Suffix != ".Pruned" {
		t.Errorf("Output.Suffix = %q, want default", cfg.Output.Suffix)
	}
	if cfg.Analysis.Parallelism != 8 {
		t.Errorf("Analysis.Parallelism = %d, want 8", cfg.Analysis.Parallelism)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `{"output": {"suffix": ".Slim", "archive": true}, "manifest": {"platform": "x64"}}`
	if err := os.WriteFile(filepath.Join(dir, "slnprune.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output.Suffix != ".Slim" {
		t.Errorf("Output.Suffix = %q, want .Slim", cfg.Output.Suffix)
	}
	if !cfg.Output.Archive {
		t.Error("Output.Archive should be true from file")
	}
	if cfg.Manifest.Platform != "x64" {
		t.Errorf("Manifest.Platform = %q, want x64", cfg.Manifest.Platform)
	}
	if !cfg.Output.CopyBuildSupportFiles {
		t.Error("CopyBuildSupportFiles default should survive a partial file")
	}
	if len(cfg.Manifest.Configurations) != 2 {
		t.Errorf("Manifest.Configurations = %v, want defaults", cfg.Manifest.Configurations)
	}
}

func TestLoadConfig_ExplicitMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("LoadConfig() with a missing explicit path should fail")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SLNPRUNE_OUTPUT_SUFFIX", ".FromEnv")

	cfg, err := LoadConfig(t.TempDir(), "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Output.Suffix != ".FromEnv" {
		t.Errorf("Output.Suffix = %q, want .FromEnv", cfg.Output.Suffix)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Manifest.Platform = "x86"

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(dir, "")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Manifest.Platform != "x86" {
		t.Errorf("Manifest.Platform = %q, want x86", loaded.Manifest.Platform)
	}
}
