package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slnprune/internal/prune"
)

var (
	typesFilter string
	typesFormat string
)

var typesCmd = &cobra.Command{
	Use:   "types <solution.sln>",
	Short: "List the types that can be pruned around",
	Long: `List every top-level type declared in the solution's C# projects.

The filter is a glob over the fully-qualified name where "*" matches one
namespace segment and "**" any number of them.

Examples:
  slnprune types Shop.sln
  slnprune types Shop.sln --filter "Shop.Orders.*"
  slnprune types Shop.sln --filter "**.*Service" --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runTypes,
}

func init() {
	typesCmd.Flags().StringVar(&typesFilter, "filter", "", "Glob over fully-qualified type names")
	typesCmd.Flags().StringVar(&typesFormat, "format", "human", "Output format (json, human, yaml)")
	rootCmd.AddCommand(typesCmd)
}

func runTypes(cmd *cobra.Command, args []string) error {
	format := OutputFormat(typesFormat)
	if err := format.Validate(); err != nil {
		return err
	}

	cfg := loadConfig(args[0])
	factory := newLoggerFactory(cmd, cfg, os.Stderr)
	defer factory.Close()

	ctx, stop := newContext()
	defer stop()

	res := prune.ListTypes(ctx, prune.Options{
		ManifestPath: args[0],
		ConfigPath:   configPath,
		Config:       cfg,
		Logger:       factory.RunLogger(),
	}, typesFilter)

	out, err := FormatResponse(res, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if !res.Success {
		return fmt.Errorf("%s: %s", res.ErrorCode, res.Error)
	}
	return nil
}
