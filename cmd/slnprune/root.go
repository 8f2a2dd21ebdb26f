package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slnprune/internal/config"
	"slnprune/internal/slogutil"
)

var (
	verbosity  int
	quiet      bool
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "slnprune",
	Short: "slnprune - reduce a C# solution to what one type needs",
	Long: `slnprune copies the minimal part of a Visual Studio solution that is needed
to compile one type: the type itself, everything it depends on, and everything
that depends on it, together with the projects that own those files and a
regenerated .sln.`,
	Version:       currentBuild().short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true //nolint:reassign // library global
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("slnprune version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: slnprune.* next to the solution)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored human output")
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the configuration that applies to manifest. Errors are
// left for the pipeline to report; the defaults are used meanwhile.
func loadConfig(manifest string) *config.Config {
	cfg, err := config.LoadConfig(filepath.Dir(manifest), configPath)
	if err != nil {
		return nil
	}
	return cfg
}

// newLoggerFactory builds the run logger. Explicit -v or -q flags win over
// logging.level from the config.
func newLoggerFactory(cmd *cobra.Command, cfg *config.Config, w io.Writer) *slogutil.LoggerFactory {
	cliSet := cmd.Flags().Changed("verbose") || cmd.Flags().Changed("quiet")
	return slogutil.NewLoggerFactory(cfg, w, slogutil.LevelFromVerbosity(verbosity, quiet), cliSet)
}
