package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"slnprune/internal/prune"
	"slnprune/internal/workspace"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
)

// Validate rejects unknown formats before any work is done.
func (f OutputFormat) Validate() error {
	switch f {
	case FormatJSON, FormatHuman, FormatYAML:
		return nil
	}
	return fmt.Errorf("unsupported format: %s (want json, human or yaml)", f)
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatYAML(resp interface{}) (string, error) {
	data, err := yaml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *prune.Result:
		return formatPruneHuman(v), nil
	case *prune.TypesResult:
		return formatTypesHuman(v), nil
	case buildInfo:
		return v.human(), nil
	default:
		return formatJSON(resp)
	}
}

func formatPruneHuman(res *prune.Result) string {
	var b strings.Builder

	if !res.Success {
		b.WriteString(fmt.Sprintf("%s Pruning failed [%s]\n", failMark(), res.ErrorCode))
		b.WriteString(fmt.Sprintf("  %s\n", res.Error))
		writeWarnings(&b, res.Warnings)
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString(fmt.Sprintf("%s Pruned around %s\n", okMark(), res.TargetType))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	b.WriteString(fmt.Sprintf("Types: %d (%d dependencies, %d dependents) in %d rounds\n",
		len(res.IncludedTypes), res.DependencyCount, res.DependentCount, res.Rounds))
	for _, name := range res.IncludedTypes {
		marker := " "
		if name == res.TargetType {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", marker, name))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Projects (%d):\n", len(res.IncludedProjects)))
	for _, name := range res.IncludedProjects {
		b.WriteString(fmt.Sprintf("  - %s\n", name))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Files (%d):\n", len(res.IncludedFiles)))
	for _, f := range res.IncludedFiles {
		b.WriteString(fmt.Sprintf("  %s\n", f))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Output: %s (%s)\n", res.OutputManifestPath, humanize.IBytes(uint64(res.BytesWritten))))
	if res.ArchivePath != "" {
		b.WriteString(fmt.Sprintf("Archive: %s\n", res.ArchivePath))
	}
	b.WriteString(fmt.Sprintf("Duration: %dms\n", res.DurationMs))

	writeWarnings(&b, res.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatTypesHuman(res *prune.TypesResult) string {
	var b strings.Builder

	if !res.Success {
		b.WriteString(fmt.Sprintf("%s Listing types failed [%s]\n", failMark(), res.ErrorCode))
		b.WriteString(fmt.Sprintf("  %s\n", res.Error))
		return strings.TrimRight(b.String(), "\n")
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateHeader = false
	tbl.AppendHeader(table.Row{"TYPE", "KIND", "PROJECTS", "FILES"})
	for _, t := range res.Types {
		tbl.AppendRow(table.Row{t.Name, t.Kind, strings.Join(t.Projects, ", "), len(t.Files)})
	}
	b.WriteString(tbl.Render())
	b.WriteString(fmt.Sprintf("\n\n%s types\n", humanize.Comma(int64(len(res.Types)))))

	writeWarnings(&b, res.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func okMark() string {
	return color.New(color.FgGreen).Sprint("✓")
}

func failMark() string {
	return color.New(color.FgRed).Sprint("✗")
}

func writeWarnings(b *strings.Builder, warnings []workspace.Warning) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\nWarnings (%d):\n", len(warnings)))
	for _, w := range warnings {
		b.WriteString(fmt.Sprintf("  ! %s\n", w))
	}
}
