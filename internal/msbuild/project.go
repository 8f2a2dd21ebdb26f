// Package msbuild reads the parts of MSBuild project files (.csproj) that decide
// which source files a project compiles and which projects it references.
package msbuild

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slnprune/internal/paths"
)

// Using is a <Using> item: a project-wide using directive.
type Using struct {
	Namespace string
	Alias     string
	Static    bool
}

// Project is the evaluated subset of a project descriptor.
type Project struct {
	Path     string // absolute path of the descriptor
	Dir      string
	SDKStyle bool

	AssemblyName  string
	RootNamespace string

	// EnableDefaultCompileItems is true when an SDK project compiles **/*.cs implicitly.
	EnableDefaultCompileItems bool
	DefaultItemExcludes       []string // slash separated globs, relative to Dir

	CompileIncludes []string // slash separated, relative to Dir unless absolute
	CompileRemoves  []string

	ProjectReferences []string // absolute descriptor paths
	Usings            []Using

	// Unresolved lists item specs that depend on MSBuild properties this reader does not evaluate.
	Unresolved []string
}

type xmlProject struct {
	XMLName        xml.Name           `xml:"Project"`
	Sdk            string             `xml:"Sdk,attr"`
	SdkElements    []xmlSdk           `xml:"Sdk"`
	Imports        []xmlImport        `xml:"Import"`
	PropertyGroups []xmlPropertyGroup `xml:"PropertyGroup"`
	ItemGroups     []xmlItemGroup     `xml:"ItemGroup"`
}

type xmlSdk struct {
	Name string `xml:"Name,attr"`
}

type xmlImport struct {
	Sdk string `xml:"Sdk,attr"`
}

type xmlPropertyGroup struct {
	EnableDefaultCompileItems string `xml:"EnableDefaultCompileItems"`
	EnableDefaultItems        string `xml:"EnableDefaultItems"`
	DefaultItemExcludes       string `xml:"DefaultItemExcludes"`
	AssemblyName              string `xml:"AssemblyName"`
	RootNamespace             string `xml:"RootNamespace"`
}

type xmlItemGroup struct {
	Compile          []xmlItem `xml:"Compile"`
	ProjectReference []xmlItem `xml:"ProjectReference"`
	Using            []xmlItem `xml:"Using"`
}

type xmlItem struct {
	Include string `xml:"Include,attr"`
	Remove  string `xml:"Remove,attr"`
	Alias   string `xml:"Alias,attr"`
	Static  string `xml:"Static,attr"`
}

// ParseProject reads and evaluates the descriptor at path.
func ParseProject(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var raw xmlProject
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", abs, err)
	}

	p := &Project{
		Path:     abs,
		Dir:      filepath.Dir(abs),
		SDKStyle: isSDKStyle(&raw),
	}
	p.EnableDefaultCompileItems = p.SDKStyle

	for _, pg := range raw.PropertyGroups {
		if isFalse(pg.EnableDefaultItems) || isFalse(pg.EnableDefaultCompileItems) {
			p.EnableDefaultCompileItems = false
		}
		if pg.DefaultItemExcludes != "" {
			p.DefaultItemExcludes = append(p.DefaultItemExcludes, p.expandList(pg.DefaultItemExcludes)...)
		}
		if pg.AssemblyName != "" {
			p.AssemblyName = strings.TrimSpace(pg.AssemblyName)
		}
		if pg.RootNamespace != "" {
			p.RootNamespace = strings.TrimSpace(pg.RootNamespace)
		}
	}

	for _, ig := range raw.ItemGroups {
		for _, item := range ig.Compile {
			p.CompileIncludes = append(p.CompileIncludes, p.expandList(item.Include)...)
			p.CompileRemoves = append(p.CompileRemoves, p.expandList(item.Remove)...)
		}
		for _, item := range ig.ProjectReference {
			for _, ref := range p.expandList(item.Include) {
				p.ProjectReferences = append(p.ProjectReferences, paths.FromManifest(p.Dir, ref))
			}
		}
		for _, item := range ig.Using {
			ns := strings.TrimSpace(item.Include)
			if ns == "" {
				continue
			}
			p.Usings = append(p.Usings, Using{
				Namespace: ns,
				Alias:     strings.TrimSpace(item.Alias),
				Static:    strings.EqualFold(strings.TrimSpace(item.Static), "true"),
			})
		}
	}

	return p, nil
}

func isSDKStyle(raw *xmlProject) bool {
	if strings.TrimSpace(raw.Sdk) != "" || len(raw.SdkElements) > 0 {
		return true
	}
	for _, imp := range raw.Imports {
		if strings.TrimSpace(imp.Sdk) != "" {
			return true
		}
	}
	return false
}

func isFalse(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "false")
}

// expandList splits a semicolon separated item spec, substitutes the directory
// properties that are known without evaluation, and drops entries that still
// reference properties. Dropped entries are recorded in Unresolved.
func (p *Project) expandList(spec string) []string {
	var out []string
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = substituteDirProps(part, p.Dir)
		if strings.Contains(part, "$(") || strings.Contains(part, "@(") || strings.Contains(part, "%(") {
			if !strings.HasPrefix(part, "$(DefaultItemExcludes)") {
				p.Unresolved = append(p.Unresolved, part)
			}
			continue
		}
		out = append(out, strings.ReplaceAll(part, "\\", "/"))
	}
	return out
}

func substituteDirProps(spec, dir string) string {
	slashDir := filepath.ToSlash(dir) + "/"
	for _, prop := range []string{"$(MSBuildProjectDirectory)", "$(MSBuildThisFileDirectory)", "$(ProjectDir)"} {
		if i := strings.Index(spec, prop); i >= 0 {
			rest := strings.TrimLeft(spec[i+len(prop):], "/\\")
			spec = spec[:i] + slashDir + rest
		}
	}
	return spec
}
