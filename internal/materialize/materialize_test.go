package materialize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slnprune/internal/testutil"
)

type tree struct {
	root     string
	manifest string
	app      string
	core     string
}

func newTree(t *testing.T) *tree {
	t.Helper()
	root := filepath.Join(t.TempDir(), "repo")
	tr := &tree{
		root:     root,
		manifest: filepath.Join(root, "sln", "All.sln"),
		app:      filepath.Join(root, "src", "App", "App.csproj"),
		core:     filepath.Join(root, "src", "Core", "Core.csproj"),
	}
	testutil.WriteFile(t, tr.manifest, "original")
	testutil.WriteFile(t, tr.app, "<Project Sdk=\"Microsoft.NET.Sdk\" />")
	testutil.WriteFile(t, tr.core, "<Project Sdk=\"Microsoft.NET.Sdk\" />")
	testutil.WriteFile(t, filepath.Join(root, "src", "App", "Target.cs"), "class Target {}")
	testutil.WriteFile(t, filepath.Join(root, "src", "App", "Skipped.cs"), "class Skipped {}")
	testutil.WriteFile(t, filepath.Join(root, "src", "Core", "Base.cs"), "class Base {}")
	testutil.WriteFile(t, filepath.Join(root, "Directory.Build.props"), "<Project />")
	testutil.WriteFile(t, filepath.Join(root, "src", "Directory.Packages.props"), "<Project />")
	testutil.WriteFile(t, filepath.Join(root, "src", "App", "nuget.config"), "<configuration />")
	return tr
}

func (tr *tree) plan(out string) Plan {
	return Plan{
		ManifestPath: tr.manifest,
		OutputDir:    out,
		Manifest:     []byte("pruned\r\n"),
		Descriptors:  []string{tr.app, tr.core},
		Files: []string{
			filepath.Join(tr.root, "src", "App", "Target.cs"),
			filepath.Join(tr.root, "src", "Core", "Base.cs"),
		},
		CopyBuildSupportFiles: true,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestWrite(t *testing.T) {
	tr := newTree(t)
	outDir := filepath.Join(tr.root, "sln", "All.Pruned")

	out, err := Write(tr.plan(outDir))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if out.LayoutRoot != tr.root {
		t.Errorf("LayoutRoot = %q, want %q", out.LayoutRoot, tr.root)
	}
	if want := filepath.Join(outDir, "sln", "All.sln"); out.ManifestPath != want {
		t.Errorf("ManifestPath = %q, want %q", out.ManifestPath, want)
	}
	if got := readFile(t, out.ManifestPath); got != "pruned\r\n" {
		t.Errorf("manifest = %q", got)
	}

	want := []string{
		"Directory.Build.props",
		"sln/All.sln",
		"src/App/App.csproj",
		"src/App/Target.cs",
		"src/App/nuget.config",
		"src/Core/Base.cs",
		"src/Core/Core.csproj",
		"src/Directory.Packages.props",
	}
	if strings.Join(out.Copied, ",") != strings.Join(want, ",") {
		t.Errorf("Copied = %v, want %v", out.Copied, want)
	}
	if _, err := os.Stat(filepath.Join(outDir, "src", "App", "Skipped.cs")); !os.IsNotExist(err) {
		t.Error("unselected source file was copied")
	}
	if got := readFile(t, filepath.Join(outDir, "src", "App", "App.csproj")); got != "<Project Sdk=\"Microsoft.NET.Sdk\" />" {
		t.Errorf("descriptor not copied verbatim: %q", got)
	}
	if out.Bytes <= 0 {
		t.Errorf("Bytes = %d, want > 0", out.Bytes)
	}

	assertNoStaging(t, filepath.Dir(outDir))
}

func TestWrite_WithoutSupportFiles(t *testing.T) {
	tr := newTree(t)
	plan := tr.plan(filepath.Join(t.TempDir(), "out"))
	plan.CopyBuildSupportFiles = false

	out, err := Write(plan)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	for _, rel := range out.Copied {
		if strings.HasSuffix(rel, ".props") || strings.HasSuffix(rel, ".config") {
			t.Errorf("support file %s copied while disabled", rel)
		}
	}
}

func TestWrite_ReplacesPreviousOutput(t *testing.T) {
	tr := newTree(t)
	outDir := filepath.Join(t.TempDir(), "out")
	testutil.WriteFile(t, filepath.Join(outDir, "stale.txt"), "old")

	if _, err := Write(tr.plan(outDir)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "stale.txt")); !os.IsNotExist(err) {
		t.Error("previous output should have been replaced")
	}
}

func TestWrite_FailureKeepsPreviousOutput(t *testing.T) {
	tr := newTree(t)
	outDir := filepath.Join(t.TempDir(), "out")
	testutil.WriteFile(t, filepath.Join(outDir, "keep.txt"), "old")

	plan := tr.plan(outDir)
	plan.Files = append(plan.Files, filepath.Join(tr.root, "src", "App", "Missing.cs"))

	if _, err := Write(plan); err == nil {
		t.Fatal("Write() should fail when a source file is missing")
	}
	if got := readFile(t, filepath.Join(outDir, "keep.txt")); got != "old" {
		t.Errorf("previous output changed: %q", got)
	}
	assertNoStaging(t, filepath.Dir(outDir))
}

func TestWrite_RejectsOutputContainingSources(t *testing.T) {
	tr := newTree(t)
	if _, err := Write(tr.plan(filepath.Dir(tr.root))); err == nil {
		t.Error("Write() should refuse to replace a directory holding the sources")
	}
}

func TestWrite_Archive(t *testing.T) {
	tr := newTree(t)
	outDir := filepath.Join(t.TempDir(), "Slim")
	plan := tr.plan(outDir)
	plan.Archive = true

	out, err := Write(plan)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if out.ArchivePath != outDir+ArchiveExt {
		t.Fatalf("ArchivePath = %q", out.ArchivePath)
	}

	names, err := ReadArchive(out.ArchivePath)
	if err != nil {
		t.Fatalf("ReadArchive() error = %v", err)
	}
	found := make(map[string]bool)
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"Slim/", "Slim/sln/All.sln", "Slim/src/App/Target.cs"} {
		if !found[want] {
			t.Errorf("archive missing %s (have %v)", want, names)
		}
	}
}

func TestWrite_ArchiveNotPlacedIsAWarning(t *testing.T) {
	tr := newTree(t)
	parent := t.TempDir()
	outDir := filepath.Join(parent, "Slim")
	if err := os.MkdirAll(filepath.Join(outDir+ArchiveExt, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}
	plan := tr.plan(outDir)
	plan.Archive = true

	out, err := Write(plan)
	if err != nil {
		t.Fatalf("Write() error = %v, want the committed tree to be reported", err)
	}
	if out.ArchivePath != "" {
		t.Errorf("ArchivePath = %q, want empty", out.ArchivePath)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], ArchiveExt) {
		t.Errorf("Warnings = %v, want one archive warning", out.Warnings)
	}
	if _, err := os.Stat(filepath.Join(outDir, "sln", "All.sln")); err != nil {
		t.Errorf("output tree missing: %v", err)
	}
	assertNoStaging(t, parent)
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".staging-") {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}
}
