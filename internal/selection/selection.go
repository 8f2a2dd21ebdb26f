// Package selection maps a closure of symbols onto the files and projects that declare them.
package selection

import (
	"fmt"
	"sort"

	"slnprune/internal/closure"
	"slnprune/internal/paths"
	"slnprune/internal/workspace"
)

// Selection is the minimal set of files and projects for a closure.
type Selection struct {
	Files    []string             // absolute, deduplicated, sorted
	Projects []*workspace.Project // deduplicated, manifest order

	// FilesByProject lists each retained project's files, sorted.
	FilesByProject map[*workspace.Project][]string
}

// Declarer is the part of closure.Model the mapper needs.
type Declarer interface {
	Declarations(id closure.SymbolID) []closure.Location
}

// Map collects every declaration part of every included symbol. A project
// is retained exactly when it owns at least one selected file.
func Map(model Declarer, ws *workspace.Workspace, included []closure.SymbolID) (*Selection, error) {
	files := make(map[string]string)
	owners := make(map[*workspace.Project]map[string]string)

	for _, id := range included {
		locs := model.Declarations(id)
		if len(locs) == 0 {
			return nil, fmt.Errorf("symbol %s has no declaration", id)
		}
		for _, loc := range locs {
			proj := ws.ProjectByPath(loc.Project)
			if proj == nil {
				return nil, fmt.Errorf("symbol %s is declared in %s, which is not part of the solution", id, loc.Project)
			}
			key := paths.Key(loc.File)
			files[key] = loc.File
			if owners[proj] == nil {
				owners[proj] = make(map[string]string)
			}
			owners[proj][key] = loc.File
		}
	}

	sel := &Selection{
		Files:          sortedValues(files),
		FilesByProject: make(map[*workspace.Project][]string, len(owners)),
	}
	for _, proj := range ws.Projects {
		if owned, ok := owners[proj]; ok {
			sel.Projects = append(sel.Projects, proj)
			sel.FilesByProject[proj] = sortedValues(owned)
		}
	}
	return sel, nil
}

// ProjectNames returns the names of the retained projects, sorted.
func (s *Selection) ProjectNames() []string {
	out := make([]string, 0, len(s.Projects))
	for _, p := range s.Projects {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
