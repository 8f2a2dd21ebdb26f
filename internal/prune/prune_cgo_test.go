//go:build cgo

package prune

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slnprune/internal/errors"
	"slnprune/internal/solution"
	"slnprune/internal/testutil"
)

func TestRun_Layered(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")

	res := Run(context.Background(), Options{ManifestPath: fixture.Manifest, TypeName: "Layered.App.Target"})
	if !res.Success {
		t.Fatalf("Run() failed: %s %s", res.ErrorCode, res.Error)
	}

	testutil.CompareGolden(t, fixture, "prune_target", struct {
		Success            bool     `json:"success"`
		TargetType         string   `json:"targetType"`
		OutputManifestPath string   `json:"outputManifestPath"`
		IncludedTypes      []string `json:"includedTypes"`
		IncludedFiles      []string `json:"includedFiles"`
		IncludedProjects   []string `json:"includedProjects"`
		DependencyCount    int      `json:"dependencyCount"`
		DependentCount     int      `json:"dependentCount"`
	}{
		res.Success, res.TargetType, res.OutputManifestPath,
		res.IncludedTypes, res.IncludedFiles, res.IncludedProjects,
		res.DependencyCount, res.DependentCount,
	})

	out := filepath.Join(fixture.Root, "Layered.Pruned")
	for _, rel := range []string{
		"Directory.Build.props",
		"src/App/App.csproj",
		"src/Core/Core.csproj",
		"src/Consumer/Consumer.csproj",
		"src/Core/Helper.cs",
	} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s in output: %v", rel, err)
		}
	}
	for _, rel := range []string{"src/Other", "src/Core/Unrelated.cs"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel))); !os.IsNotExist(err) {
			t.Errorf("%s should not be in the output", rel)
		}
	}

	sln, err := solution.ParseFile(res.OutputManifestPath)
	if err != nil {
		t.Fatalf("output manifest does not parse: %v", err)
	}
	ids := map[string]string{}
	for _, p := range sln.Projects {
		ids[p.Name] = p.ID
	}
	want := map[string]string{
		"Core":     "C0C0C0C0-1111-4111-8111-000000000001",
		"App":      "A0A0A0A0-2222-4222-8222-000000000002",
		"Consumer": "C1C1C1C1-3333-4333-8333-000000000003",
	}
	if len(ids) != len(want) {
		t.Errorf("output projects = %v, want %v", ids, want)
	}
	for name, id := range want {
		if !strings.EqualFold(ids[name], id) {
			t.Errorf("project %s id = %q, want %q", name, ids[name], id)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")
	opts := Options{ManifestPath: fixture.Manifest, TypeName: "Layered.App.Target"}

	first := Run(context.Background(), opts)
	if !first.Success {
		t.Fatalf("first Run() failed: %s", first.Error)
	}
	firstManifest, err := os.ReadFile(first.OutputManifestPath)
	if err != nil {
		t.Fatal(err)
	}

	second := Run(context.Background(), opts)
	if !second.Success {
		t.Fatalf("second Run() failed: %s", second.Error)
	}
	secondManifest, err := os.ReadFile(second.OutputManifestPath)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstManifest, secondManifest) {
		t.Error("output manifest differs between runs")
	}
	if strings.Join(first.IncludedFiles, ",") != strings.Join(second.IncludedFiles, ",") {
		t.Errorf("included files differ: %v vs %v", first.IncludedFiles, second.IncludedFiles)
	}
}

func TestRun_LeafWithoutDependents(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")

	res := Run(context.Background(), Options{ManifestPath: fixture.Manifest, TypeName: "Layered.Consumer.Consumer"})
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.Error)
	}
	if res.DependentCount != 0 {
		t.Errorf("DependentCount = %d, want 0", res.DependentCount)
	}
	for _, name := range res.IncludedProjects {
		if name == "Other" {
			t.Error("Other should not be included")
		}
	}
}

func TestRun_TypeNotFound(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")
	out := filepath.Join(fixture.Root, "out")

	res := Run(context.Background(), Options{ManifestPath: fixture.Manifest, TypeName: "Layered.Missing", OutputDir: out})
	if res.Success || res.ErrorCode != errors.TypeNotFound {
		t.Fatalf("Run() = %v %s, want TYPE_NOT_FOUND", res.Success, res.ErrorCode)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written when the type is not found")
	}
}

func TestRun_Cancelled(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")
	out := filepath.Join(fixture.Root, "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Run(ctx, Options{ManifestPath: fixture.Manifest, TypeName: "Layered.App.Target", OutputDir: out})
	if res.ErrorCode != errors.Cancelled {
		t.Fatalf("ErrorCode = %s, want %s", res.ErrorCode, errors.Cancelled)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written after cancellation")
	}
}

func TestRun_Archive(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")

	res := Run(context.Background(), Options{ManifestPath: fixture.Manifest, TypeName: "Layered.Core.Helper", Archive: true})
	if !res.Success {
		t.Fatalf("Run() failed: %s", res.Error)
	}
	if res.ArchivePath == "" {
		t.Fatal("ArchivePath should be set")
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestListTypes(t *testing.T) {
	fixture := testutil.LoadFixture(t, "layered")

	res := ListTypes(context.Background(), Options{ManifestPath: fixture.Manifest}, "")
	if !res.Success {
		t.Fatalf("ListTypes() failed: %s", res.Error)
	}
	var target *TypeInfo
	for i := range res.Types {
		if res.Types[i].Name == "Layered.App.Target" {
			target = &res.Types[i]
		}
	}
	if target == nil {
		t.Fatalf("Layered.App.Target missing from %d types", len(res.Types))
	}
	if len(target.Files) != 2 || len(target.Projects) != 1 || target.Projects[0] != "App" {
		t.Errorf("Target = %+v, want two files in App", *target)
	}
	if target.Kind != "class" {
		t.Errorf("Target.Kind = %q, want class", target.Kind)
	}

	filtered := ListTypes(context.Background(), Options{ManifestPath: fixture.Manifest}, "Layered.Core.**")
	if len(filtered.Types) != 3 {
		t.Errorf("filtered types = %v, want Base, Helper and Unrelated", filtered.Types)
	}
}
