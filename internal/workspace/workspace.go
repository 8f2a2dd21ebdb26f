// Package workspace loads a solution and its C# projects into memory.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"slnprune/internal/msbuild"
	"slnprune/internal/paths"
	"slnprune/internal/slogutil"
	"slnprune/internal/solution"
)

// Warning is a non-fatal problem found while loading or analyzing the workspace.
type Warning struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.File == "" {
		return w.Message
	}
	return w.File + ": " + w.Message
}

// Project is one loaded C# project.
type Project struct {
	Name           string
	DescriptorPath string
	Dir            string
	ID             string // GUID from the solution, may be empty
	KindID         string
	SDKStyle       bool
	References     []string // absolute descriptor paths of referenced projects
	Sources        []string // absolute, sorted
	Usings         []msbuild.Using
}

// Workspace is a loaded solution.
type Workspace struct {
	ManifestPath string
	Solution     *solution.Solution
	Projects     []*Project // manifest order
	Warnings     []Warning

	byKey map[string]*Project
}

// Options controls loading.
type Options struct {
	ExcludeDirs []string
	Logger      *slog.Logger
}

// Load parses the manifest and every C# project it lists. A project that
// cannot be read is skipped with a warning; an unreadable manifest is an error.
func Load(ctx context.Context, manifestPath string, opts Options) (*Workspace, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}
	sln, err := solution.ParseFile(abs)
	if err != nil {
		return nil, err
	}

	ws := New(abs, sln, nil)
	baseDir := filepath.Dir(abs)

	for _, entry := range sln.Projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsFolder() || !strings.EqualFold(filepath.Ext(entry.Path), ".csproj") {
			continue
		}

		descriptor := paths.FromManifest(baseDir, entry.Path)
		key := paths.Key(descriptor)
		if _, dup := ws.byKey[key]; dup {
			ws.warn(logger, descriptor, "project listed more than once in the solution")
			continue
		}

		proj, err := msbuild.ParseProject(descriptor)
		if err != nil {
			ws.warn(logger, descriptor, fmt.Sprintf("project skipped: %v", err))
			continue
		}
		for _, spec := range proj.Unresolved {
			ws.warn(logger, descriptor, fmt.Sprintf("item %q uses unevaluated MSBuild properties and was ignored", spec))
		}

		sources, err := proj.SourceFiles(opts.ExcludeDirs)
		if err != nil {
			ws.warn(logger, descriptor, fmt.Sprintf("could not enumerate sources: %v", err))
		}

		p := &Project{
			Name:           entry.Name,
			DescriptorPath: proj.Path,
			Dir:            proj.Dir,
			ID:             entry.ID,
			KindID:         entry.KindID,
			SDKStyle:       proj.SDKStyle,
			References:     proj.ProjectReferences,
			Sources:        sources,
			Usings:         proj.Usings,
		}
		ws.Projects = append(ws.Projects, p)
		ws.byKey[key] = p

		logger.Debug("Loaded project",
			"name", p.Name,
			"sources", len(p.Sources),
			"references", len(p.References),
			"sdk", p.SDKStyle,
		)
	}

	for _, p := range ws.Projects {
		for _, ref := range p.References {
			if ws.byKey[paths.Key(ref)] == nil {
				ws.warn(logger, p.DescriptorPath, fmt.Sprintf("referenced project %s is not part of the solution", ref))
			}
		}
	}

	logger.Info("Workspace loaded", "manifest", abs, "projects", len(ws.Projects), "warnings", len(ws.Warnings))
	return ws, nil
}

func (ws *Workspace) warn(logger *slog.Logger, file, msg string) {
	ws.Warnings = append(ws.Warnings, Warning{File: file, Message: msg})
	logger.Warn(msg, "file", file)
}

// New assembles a workspace from projects that are already loaded.
func New(manifestPath string, sln *solution.Solution, projects []*Project) *Workspace {
	ws := &Workspace{
		ManifestPath: manifestPath,
		Solution:     sln,
		Projects:     projects,
		byKey:        make(map[string]*Project, len(projects)),
	}
	for _, p := range projects {
		ws.byKey[paths.Key(p.DescriptorPath)] = p
	}
	return ws
}

// ProjectByPath returns the project whose descriptor is at path, or nil.
func (ws *Workspace) ProjectByPath(path string) *Project {
	return ws.byKey[paths.Key(path)]
}

// Visible returns the projects whose types p can see: p itself and every
// project reachable through project references, in manifest order.
func (ws *Workspace) Visible(p *Project) []*Project {
	seen := map[*Project]bool{p: true}
	queue := []*Project{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ref := range cur.References {
			dep := ws.byKey[paths.Key(ref)]
			if dep != nil && !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	out := make([]*Project, 0, len(seen))
	for _, candidate := range ws.Projects {
		if seen[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

// Index returns the position of p in manifest order, or -1.
func (ws *Workspace) Index(p *Project) int {
	for i, candidate := range ws.Projects {
		if candidate == p {
			return i
		}
	}
	return -1
}
