package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"slnprune/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage slnprune configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a slnprune.json with the default settings",
	Long: `Write slnprune.json with every setting at its default value.

Place it next to the solution; it is picked up by prune and types unless
--config points elsewhere.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing configuration file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	path, err := initConfig(dir, configForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", okMark(), path)
	return nil
}

// initConfig writes the default configuration into dir. An existing
// slnprune.* file is kept unless force is set.
func initConfig(dir string, force bool) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	if !force {
		for _, ext := range []string{".json", ".yaml", ".yml", ".toml"} {
			existing := filepath.Join(dir, config.FileName+ext)
			if _, err := os.Stat(existing); err == nil {
				return "", fmt.Errorf("%s already exists (use --force to overwrite)", existing)
			}
		}
	}

	if err := config.DefaultConfig().Save(dir); err != nil {
		return "", fmt.Errorf("write configuration: %w", err)
	}
	return filepath.Join(dir, config.FileName+".json"), nil
}
