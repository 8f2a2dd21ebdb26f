// Package testutil provides solution fixtures and golden-file helpers for tests.
package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Name is the fixture directory name under testdata/fixtures
	Name string

	// Root is the absolute path to the writable copy of the fixture
	Root string

	// Manifest is the path to the fixture's .sln file
	Manifest string

	// ExpectedDir is the path to the checked-in expected/ directory
	ExpectedDir string
}

// LoadFixture copies testdata/fixtures/<name> into a temporary directory so
// tests can write output next to the manifest, failing the test on error.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	src := filepath.Join(getFixturesRoot(t), name)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", src)
	}

	dst := filepath.Join(t.TempDir(), name)
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "expected" && d.IsDir() {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", name, err)
	}

	manifests, _ := filepath.Glob(filepath.Join(dst, "*.sln"))
	if len(manifests) != 1 {
		t.Fatalf("Fixture %s must contain exactly one .sln at its root, found %d", name, len(manifests))
	}

	return &FixtureContext{
		Name:        name,
		Root:        dst,
		Manifest:    manifests[0],
		ExpectedDir: filepath.Join(src, "expected"),
	}
}

// ExpectedPath returns the path to a golden file within the fixture.
// The name should not include the .json extension.
func (f *FixtureContext) ExpectedPath(name string) string {
	return filepath.Join(f.ExpectedDir, name+".json")
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// SolutionBuilder writes a small solution tree into a temporary directory.
type SolutionBuilder struct {
	t        *testing.T
	Root     string
	name     string
	projects []*ProjectFixture
}

// ProjectFixture is one project of a SolutionBuilder.
type ProjectFixture struct {
	Name   string
	Dir    string // slash separated, relative to the solution root
	ID     string
	Legacy bool

	refs  []string
	files map[string]string
	extra string
}

// NewSolution starts a solution named name in a fresh temporary directory.
func NewSolution(t *testing.T, name string) *SolutionBuilder {
	t.Helper()
	return &SolutionBuilder{t: t, Root: t.TempDir(), name: name}
}

// Project adds an SDK-style project living in a directory of the same name.
func (b *SolutionBuilder) Project(name string) *ProjectFixture {
	n := len(b.projects) + 1
	p := &ProjectFixture{
		Name:  name,
		Dir:   name,
		ID:    fmt.Sprintf("%08X-0000-4000-8000-%012X", n, n),
		files: make(map[string]string),
	}
	b.projects = append(b.projects, p)
	return p
}

// References adds project references by project name.
func (p *ProjectFixture) References(names ...string) *ProjectFixture {
	p.refs = append(p.refs, names...)
	return p
}

// File adds a source file relative to the project directory.
func (p *ProjectFixture) File(rel, content string) *ProjectFixture {
	p.files[rel] = content
	return p
}

// Items adds raw XML inside an extra ItemGroup of the descriptor.
func (p *ProjectFixture) Items(xml string) *ProjectFixture {
	p.extra += xml
	return p
}

// Write writes the solution, descriptors and sources and returns the manifest path.
func (b *SolutionBuilder) Write() string {
	b.t.Helper()

	byName := make(map[string]*ProjectFixture, len(b.projects))
	for _, p := range b.projects {
		byName[p.Name] = p
	}

	var sln strings.Builder
	sln.WriteString("Microsoft Visual Studio Solution File, Format Version 12.00\r\n")
	sln.WriteString("# Visual Studio Version 17\r\n")
	for _, p := range b.projects {
		kind := "9A19103F-16F7-4668-BE54-9A1E7A4F7556"
		if p.Legacy {
			kind = "FAE04EC0-301F-11D3-BF4B-00C04F79EFBC"
		}
		descriptor := strings.ReplaceAll(p.Dir, "/", "\\") + "\\" + p.Name + ".csproj"
		fmt.Fprintf(&sln, "Project(\"{%s}\") = \"%s\", \"%s\", \"{%s}\"\r\nEndProject\r\n", kind, p.Name, descriptor, p.ID)

		var items strings.Builder
		for _, ref := range p.refs {
			target, ok := byName[ref]
			if !ok {
				b.t.Fatalf("Project %s references unknown project %s", p.Name, ref)
			}
			rel, err := filepath.Rel(filepath.FromSlash(p.Dir), filepath.Join(filepath.FromSlash(target.Dir), target.Name+".csproj"))
			if err != nil {
				b.t.Fatal(err)
			}
			fmt.Fprintf(&items, "    <ProjectReference Include=\"%s\" />\n", strings.ReplaceAll(filepath.ToSlash(rel), "/", "\\"))
		}

		rels := make([]string, 0, len(p.files))
		for rel := range p.files {
			rels = append(rels, rel)
		}
		sort.Strings(rels)

		var xml string
		if p.Legacy {
			for _, rel := range rels {
				fmt.Fprintf(&items, "    <Compile Include=\"%s\" />\n", strings.ReplaceAll(rel, "/", "\\"))
			}
			xml = "<Project ToolsVersion=\"15.0\" xmlns=\"http://schemas.microsoft.com/developer/msbuild/2003\">\n  <ItemGroup>\n" +
				items.String() + p.extra + "  </ItemGroup>\n</Project>\n"
		} else {
			xml = "<Project Sdk=\"Microsoft.NET.Sdk\">\n  <PropertyGroup>\n    <TargetFramework>net8.0</TargetFramework>\n  </PropertyGroup>\n  <ItemGroup>\n" +
				items.String() + p.extra + "  </ItemGroup>\n</Project>\n"
		}

		dir := filepath.Join(b.Root, filepath.FromSlash(p.Dir))
		WriteFile(b.t, filepath.Join(dir, p.Name+".csproj"), xml)
		for _, rel := range rels {
			WriteFile(b.t, filepath.Join(dir, filepath.FromSlash(rel)), p.files[rel])
		}
	}

	manifest := filepath.Join(b.Root, b.name+".sln")
	WriteFile(b.t, manifest, sln.String())
	return manifest
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
