package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slnprune/internal/prune"
)

var (
	pruneOutput  string
	pruneFormat  string
	pruneArchive bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune <solution.sln> <Fully.Qualified.Type>",
	Short: "Write a reduced copy of a solution around one type",
	Long: `Compute the closure of a type (its dependencies, the types that reference it,
and their dependencies) and write the files and projects involved, with a new
solution file, to an output directory.

Generic types take a backtick arity or angle brackets:
  Shop.Data.Repository` + "`" + `1   or   "Shop.Data.Repository<T>"

Examples:
  slnprune prune Shop.sln Shop.Orders.OrderService
  slnprune prune Shop.sln Shop.Orders.OrderService --output /tmp/orders
  slnprune prune Shop.sln Shop.Orders.OrderService --format=human -v`,
	Args: cobra.ExactArgs(2),
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().StringVarP(&pruneOutput, "output", "o", "", "Output directory (default: <solution-dir>/<name>.Pruned)")
	pruneCmd.Flags().StringVar(&pruneFormat, "format", "json", "Output format (json, human, yaml)")
	pruneCmd.Flags().BoolVar(&pruneArchive, "archive", false, "Also write a .tar.zst of the output")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	format := OutputFormat(pruneFormat)
	if err := format.Validate(); err != nil {
		return err
	}

	cfg := loadConfig(args[0])
	factory := newLoggerFactory(cmd, cfg, os.Stderr)
	defer factory.Close()
	logger := factory.RunLogger()

	ctx, stop := newContext()
	defer stop()

	res := prune.Run(ctx, prune.Options{
		ManifestPath: args[0],
		TypeName:     args[1],
		OutputDir:    pruneOutput,
		ConfigPath:   configPath,
		Config:       cfg,
		Archive:      pruneArchive,
		Logger:       logger,
	})

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
