package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the base name (without extension) of the config file searched
// next to the solution manifest.
const FileName = "slnprune"

// EnvPrefix is the environment variable prefix; SLNPRUNE_OUTPUT_SUFFIX overrides output.suffix.
const EnvPrefix = "SLNPRUNE"

// Config represents the complete slnprune configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Output   OutputConfig   `json:"output" mapstructure:"output"`
	Manifest ManifestConfig `json:"manifest" mapstructure:"manifest"`
	Identity IdentityConfig `json:"identity" mapstructure:"identity"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	// File, when set, receives a copy of every log line in addition to stderr.
	File string `json:"file" mapstructure:"file"`
}

// AnalysisConfig controls how the workspace is loaded and parsed
type AnalysisConfig struct {
	Parallelism      int      `json:"parallelism" mapstructure:"parallelism"`
	ExcludeDirs      []string `json:"excludeDirs" mapstructure:"excludeDirs"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// OutputConfig controls the materialized output tree
type OutputConfig struct {
	Suffix                string `json:"suffix" mapstructure:"suffix"`
	CopyBuildSupportFiles bool   `json:"copyBuildSupportFiles" mapstructure:"copyBuildSupportFiles"`
	Archive               bool   `json:"archive" mapstructure:"archive"`
}

// ManifestConfig controls the regenerated solution manifest
type ManifestConfig struct {
	Configurations []string `json:"configurations" mapstructure:"configurations"`
	Platform       string   `json:"platform" mapstructure:"platform"`
}

// IdentityConfig controls how project identities are minted when none can be recovered
type IdentityConfig struct {
	Deterministic bool `json:"deterministic" mapstructure:"deterministic"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Logging: LoggingConfig{
			Level: "warn",
		},
		Analysis: AnalysisConfig{
			Parallelism:      8,
			ExcludeDirs:      []string{"bin", "obj", ".git", ".vs", "node_modules"},
			MaxFileSizeBytes: 4 * 1024 * 1024,
		},
		Output: OutputConfig{
			Suffix:                ".Pruned",
			CopyBuildSupportFiles: true,
			Archive:               false,
		},
		Manifest: ManifestConfig{
			Configurations: []string{"Debug", "Release"},
			Platform:       "Any CPU",
		},
		Identity: IdentityConfig{
			Deterministic: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("analysis.parallelism", d.Analysis.Parallelism)
	v.SetDefault("analysis.excludeDirs", d.Analysis.ExcludeDirs)
	v.SetDefault("analysis.maxFileSizeBytes", d.Analysis.MaxFileSizeBytes)
	v.SetDefault("output.suffix", d.Output.Suffix)
	v.SetDefault("output.copyBuildSupportFiles", d.Output.CopyBuildSupportFiles)
	v.SetDefault("output.archive", d.Output.Archive)
	v.SetDefault("manifest.configurations", d.Manifest.Configurations)
	v.SetDefault("manifest.platform", d.Manifest.Platform)
	v.SetDefault("identity.deterministic", d.Identity.Deterministic)
}

// LoadConfig loads configuration for a run.
// If explicitPath is set it must exist; otherwise slnprune.{json,yaml,toml} is
// searched in dir and defaults are used when none is found.
func LoadConfig(dir, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration as JSON to dir/slnprune.json
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName+".json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.Parallelism < 1 {
		return &ConfigError{Field: "analysis.parallelism", Message: "must be at least 1"}
	}
	if strings.TrimSpace(c.Output.Suffix) == "" {
		return &ConfigError{Field: "output.suffix", Message: "must not be empty"}
	}
	if len(c.Manifest.Configurations) == 0 {
		return &ConfigError{Field: "manifest.configurations", Message: "at least one configuration is required"}
	}
	for _, name := range c.Manifest.Configurations {
		if strings.ContainsAny(name, "|=") || strings.TrimSpace(name) == "" {
			return &ConfigError{Field: "manifest.configurations", Message: "invalid configuration name " + `"` + name + `"`}
		}
	}
	if strings.TrimSpace(c.Manifest.Platform) == "" || strings.ContainsAny(c.Manifest.Platform, "|=") {
		return &ConfigError{Field: "manifest.platform", Message: "invalid platform"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
