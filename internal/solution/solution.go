// Package solution reads and writes Visual Studio solution (.sln) manifests.
package solution

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Project kind identifiers used in Project("{kind}") lines.
const (
	KindCSharpLegacy   = "FAE04EC0-301F-11D3-BF4B-00C04F79EFBC"
	KindCSharpSDK      = "9A19103F-16F7-4668-BE54-9A1E7A4F7556"
	KindSolutionFolder = "2150E333-8FDC-42A3-9474-1A3956D46DE8"
)

const headerMarker = "Microsoft Visual Studio Solution File"

// Default header values written when the original manifest carried none.
const (
	DefaultFormatVersion              = "12.00"
	DefaultVersionComment             = "# Visual Studio Version 17"
	DefaultVisualStudioVersion        = "17.0.31903.59"
	DefaultMinimumVisualStudioVersion = "10.0.40219.1"
)

// Project is one Project(...) entry of a solution.
type Project struct {
	KindID string // e.g. KindCSharpSDK, without braces
	Name   string
	Path   string // as written in the manifest, backslash separated
	ID     string // project GUID without braces; may be empty or malformed in the wild
}

// IsFolder reports whether the entry is a solution folder rather than a buildable project.
func (p Project) IsFolder() bool {
	return strings.EqualFold(p.KindID, KindSolutionFolder)
}

// Solution is the parsed form of a .sln manifest.
type Solution struct {
	FormatVersion              string
	VersionComment             string
	VisualStudioVersion        string
	MinimumVisualStudioVersion string

	Projects []Project

	// ConfigurationPlatforms are "Configuration|Platform" pairs, e.g. "Debug|Any CPU".
	ConfigurationPlatforms []string
}

var (
	projectLine = regexp.MustCompile(`^Project\("\{([^}]*)\}"\)\s*=\s*"([^"]*)"\s*,\s*"([^"]*)"\s*,\s*"\{?([^"}]*)\}?"`)
	formatLine  = regexp.MustCompile(`Format Version\s+([0-9.]+)`)
	sectionLine = regexp.MustCompile(`^GlobalSection\(([^)]*)\)`)
)

// ParseFile reads and parses the solution at path.
func ParseFile(path string) (*Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}
	sln, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return sln, nil
}

// Parse parses a solution manifest.
func Parse(r io.Reader) (*Solution, error) {
	sln := &Solution{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	sawHeader := false
	inProject := false
	section := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		if line == "" {
			continue
		}

		if !sawHeader {
			if !strings.HasPrefix(line, headerMarker) {
				return nil, fmt.Errorf("line %d: missing %q header", lineNo, headerMarker)
			}
			if m := formatLine.FindStringSubmatch(line); m != nil {
				sln.FormatVersion = m[1]
			}
			sawHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "Project("):
			if inProject {
				return nil, fmt.Errorf("line %d: nested Project entry", lineNo)
			}
			m := projectLine.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("line %d: malformed Project entry", lineNo)
			}
			sln.Projects = append(sln.Projects, Project{
				KindID: strings.ToUpper(m[1]),
				Name:   m[2],
				Path:   m[3],
				ID:     strings.ToUpper(m[4]),
			})
			inProject = true
		case line == "EndProject":
			if !inProject {
				return nil, fmt.Errorf("line %d: EndProject without Project", lineNo)
			}
			inProject = false
		case strings.HasPrefix(line, "#"):
			if sln.VersionComment == "" {
				sln.VersionComment = line
			}
		case strings.HasPrefix(line, "VisualStudioVersion"):
			sln.VisualStudioVersion = valueAfterEquals(line)
		case strings.HasPrefix(line, "MinimumVisualStudioVersion"):
			sln.MinimumVisualStudioVersion = valueAfterEquals(line)
		case strings.HasPrefix(line, "GlobalSection("):
			if m := sectionLine.FindStringSubmatch(line); m != nil {
				section = m[1]
			}
		case line == "EndGlobalSection":
			section = ""
		default:
			if section == "SolutionConfigurationPlatforms" {
				if key := strings.TrimSpace(strings.SplitN(line, "=", 2)[0]); key != "" {
					sln.ConfigurationPlatforms = append(sln.ConfigurationPlatforms, key)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("empty solution file")
	}
	if inProject {
		return nil, fmt.Errorf("unterminated Project entry")
	}

	return sln, nil
}

func valueAfterEquals(line string) string {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Encode renders the solution in the Visual Studio format with CRLF line endings.
// Every project gets ActiveCfg and Build.0 entries for every configuration pair.
func (s *Solution) Encode() []byte {
	var b bytes.Buffer
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	line("")
	line("%s, Format Version %s", headerMarker, orDefault(s.FormatVersion, DefaultFormatVersion))
	line("%s", orDefault(s.VersionComment, DefaultVersionComment))
	line("VisualStudioVersion = %s", orDefault(s.VisualStudioVersion, DefaultVisualStudioVersion))
	line("MinimumVisualStudioVersion = %s", orDefault(s.MinimumVisualStudioVersion, DefaultMinimumVisualStudioVersion))

	for _, p := range s.Projects {
		line(`Project("{%s}") = "%s", "%s", "{%s}"`, p.KindID, p.Name, p.Path, p.ID)
		line("EndProject")
	}

	line("Global")
	line("\tGlobalSection(SolutionConfigurationPlatforms) = preSolution")
	for _, cp := range s.ConfigurationPlatforms {
		line("\t\t%s = %s", cp, cp)
	}
	line("\tEndGlobalSection")
	line("\tGlobalSection(ProjectConfigurationPlatforms) = postSolution")
	for _, p := range s.Projects {
		if p.IsFolder() {
			continue
		}
		for _, cp := range s.ConfigurationPlatforms {
			line("\t\t{%s}.%s.ActiveCfg = %s", p.ID, cp, cp)
			line("\t\t{%s}.%s.Build.0 = %s", p.ID, cp, cp)
		}
	}
	line("\tEndGlobalSection")
	line("\tGlobalSection(SolutionProperties) = preSolution")
	line("\t\tHideSolutionNode = FALSE")
	line("\tEndGlobalSection")
	line("EndGlobal")

	return b.Bytes()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
