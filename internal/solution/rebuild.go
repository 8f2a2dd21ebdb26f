package solution

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"slnprune/internal/paths"
)

// identityNamespace seeds the name-based UUIDs minted for projects whose
// original identity cannot be recovered.
var identityNamespace = uuid.MustParse("5b3f6e2a-9c1d-4f7e-8a20-6d4c1b9e0f37")

// ProjectRef is a retained project handed to Rebuild.
type ProjectRef struct {
	Name           string
	DescriptorPath string // absolute path of the .csproj
	SDKStyle       bool
}

// RebuildOptions controls the regenerated manifest.
type RebuildOptions struct {
	Configurations []string // e.g. Debug, Release
	Platform       string   // e.g. "Any CPU"
	// Deterministic mints name-based identities from the project path instead of random ones.
	Deterministic bool
}

// Rebuilt is the regenerated manifest plus a record of where identities came from.
type Rebuilt struct {
	Solution  *Solution
	Recovered []string // names of projects whose identity came from the original manifest
	Minted    []string // names of projects that received a new identity
}

// Bytes renders the regenerated manifest.
func (r *Rebuilt) Bytes() []byte {
	return r.Solution.Encode()
}

// Rebuild builds a manifest listing exactly the given projects, in order, with
// paths relative to the original manifest's directory. Identities and project
// kinds are taken from the original manifest, matched by path and then by name.
func Rebuild(originalPath string, projects []ProjectRef, opts RebuildOptions) (*Rebuilt, error) {
	original, err := ParseFile(originalPath)
	if err != nil {
		return nil, err
	}
	if len(opts.Configurations) == 0 {
		opts.Configurations = []string{"Debug", "Release"}
	}
	if opts.Platform == "" {
		opts.Platform = "Any CPU"
	}

	baseDir := filepath.Dir(originalPath)

	byPath := make(map[string]Project, len(original.Projects))
	byName := make(map[string]Project, len(original.Projects))
	for _, p := range original.Projects {
		if p.IsFolder() {
			continue
		}
		byPath[paths.Key(paths.FromManifest(baseDir, p.Path))] = p
		if _, dup := byName[strings.ToLower(p.Name)]; !dup {
			byName[strings.ToLower(p.Name)] = p
		}
	}

	out := &Rebuilt{
		Solution: &Solution{
			FormatVersion:              original.FormatVersion,
			VersionComment:             original.VersionComment,
			VisualStudioVersion:        original.VisualStudioVersion,
			MinimumVisualStudioVersion: original.MinimumVisualStudioVersion,
		},
	}
	for _, cfg := range opts.Configurations {
		out.Solution.ConfigurationPlatforms = append(out.Solution.ConfigurationPlatforms, cfg+"|"+opts.Platform)
	}

	usedIDs := make(map[string]bool, len(projects))
	for _, ref := range projects {
		rel, err := paths.ToManifest(baseDir, ref.DescriptorPath)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", ref.Name, err)
		}

		entry := Project{Name: ref.Name, Path: rel, KindID: defaultKind(ref.SDKStyle)}

		orig, ok := byPath[paths.Key(ref.DescriptorPath)]
		if !ok {
			orig, ok = byName[strings.ToLower(ref.Name)]
		}
		if ok && orig.KindID != "" {
			entry.KindID = orig.KindID
		}

		if id, valid := normalizeID(orig.ID); ok && valid && !usedIDs[id] {
			entry.ID = id
			out.Recovered = append(out.Recovered, ref.Name)
		} else {
			entry.ID = mintID(rel, opts.Deterministic)
			out.Minted = append(out.Minted, ref.Name)
		}
		usedIDs[entry.ID] = true

		out.Solution.Projects = append(out.Solution.Projects, entry)
	}

	return out, nil
}

func defaultKind(sdkStyle bool) string {
	if sdkStyle {
		return KindCSharpSDK
	}
	return KindCSharpLegacy
}

// normalizeID returns the upper-case braceless form of id and whether it is a valid GUID.
func normalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.Trim(id, "{}"))
	if err != nil {
		return "", false
	}
	return strings.ToUpper(parsed.String()), true
}

func mintID(relPath string, deterministic bool) string {
	var id uuid.UUID
	if deterministic {
		key := strings.ToLower(strings.ReplaceAll(relPath, "\\", "/"))
		id = uuid.NewSHA1(identityNamespace, []byte(key))
	} else {
		id = uuid.New()
	}
	return strings.ToUpper(id.String())
}
