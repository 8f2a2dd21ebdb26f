package msbuild

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"slnprune/internal/paths"
)

// SourceFiles returns the absolute paths of the C# files the project compiles,
// sorted. The implicit SDK glob skips directories named in excludeDirs and any
// subdirectory that holds its own project file.
func (p *Project) SourceFiles(excludeDirs []string) ([]string, error) {
	skip := make(map[string]bool, len(excludeDirs))
	for _, d := range excludeDirs {
		skip[strings.ToLower(d)] = true
	}

	files := make(map[string]string)
	add := func(path string) {
		if isCSharp(path) {
			files[paths.Key(path)] = filepath.Clean(path)
		}
	}

	if p.EnableDefaultCompileItems {
		implicit, err := p.walkDefaultItems(skip)
		if err != nil {
			return nil, err
		}
		for _, f := range implicit {
			add(f)
		}
	}

	for _, include := range p.CompileIncludes {
		if !hasGlob(include) {
			add(paths.FromManifest(p.Dir, include))
			continue
		}
		matches, err := doublestar.Glob(filepath.ToSlash(paths.FromManifest(p.Dir, include)))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if info, statErr := os.Stat(m); statErr == nil && !info.IsDir() {
				add(m)
			}
		}
	}

	for key, path := range files {
		if p.isRemoved(path) {
			delete(files, key)
		}
	}

	out := make([]string, 0, len(files))
	for _, path := range files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func (p *Project) walkDefaultItems(skip map[string]bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable directories are skipped
		}
		if d.IsDir() {
			if path == p.Dir {
				return nil
			}
			if skip[strings.ToLower(d.Name())] || p.excludedByDefault(path, true) || containsProject(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if isCSharp(path) && !p.excludedByDefault(path, false) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func (p *Project) excludedByDefault(path string, isDir bool) bool {
	rel, ok := p.relative(path)
	if !ok {
		return false
	}
	for _, pattern := range p.DefaultItemExcludes {
		if match(pattern, rel) {
			return true
		}
		if isDir && strings.HasSuffix(pattern, "/**") && match(strings.TrimSuffix(pattern, "/**"), rel) {
			return true
		}
	}
	return false
}

func (p *Project) isRemoved(path string) bool {
	rel, inside := p.relative(path)
	for _, pattern := range p.CompileRemoves {
		if hasGlob(pattern) {
			if inside && match(pattern, rel) {
				return true
			}
			continue
		}
		if paths.Key(paths.FromManifest(p.Dir, pattern)) == paths.Key(path) {
			return true
		}
	}
	return false
}

// relative returns path relative to the project directory, slash separated,
// and whether path lies inside it.
func (p *Project) relative(path string) (string, bool) {
	if !paths.IsWithin(path, p.Dir) {
		return "", false
	}
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func match(pattern, rel string) bool {
	ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(rel))
	return err == nil && ok
}

func hasGlob(spec string) bool {
	return strings.ContainsAny(spec, "*?")
}

func isCSharp(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cs")
}

func containsProject(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csproj"))
	return err == nil && len(matches) > 0
}
