package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"slnprune/internal/csharp"
)

// Overridden at release time:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version   = "0.4.0"
	commit    = ""
	buildDate = ""
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version      string `json:"version" yaml:"version"`
	Commit       string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Built        string `json:"built,omitempty" yaml:"built,omitempty"`
	GoVersion    string `json:"goVersion" yaml:"goVersion"`
	CSharpParser bool   `json:"csharpParser" yaml:"csharpParser"`
}

// currentBuild fills commit and date from the embedded VCS stamp when they
// were not set with ldflags.
func currentBuild() buildInfo {
	info := buildInfo{
		Version:      version,
		Commit:       commit,
		Built:        buildDate,
		GoVersion:    runtime.Version(),
		CSharpParser: csharp.IsAvailable(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.Built == "":
				info.Built = s.Value
			}
		}
	}
	return info
}

func (b buildInfo) short() string {
	if len(b.Commit) > 7 {
		return b.Version + " (" + b.Commit[:7] + ")"
	}
	return b.Version
}

func (b buildInfo) human() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "slnprune version %s\n", b.short())
	if b.Built != "" {
		fmt.Fprintf(&sb, "built %s\n", b.Built)
	}
	parser := "tree-sitter"
	if !b.CSharpParser {
		parser = "unavailable (built without cgo)"
	}
	fmt.Fprintf(&sb, "%s, C# parser: %s", b.GoVersion, parser)
	return sb.String()
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := OutputFormat(versionFormat)
		if err := format.Validate(); err != nil {
			return err
		}
		out, err := FormatResponse(currentBuild(), format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", string(FormatHuman), "Output format: human, json or yaml")
	rootCmd.AddCommand(versionCmd)
}
