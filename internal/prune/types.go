package prune

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"

	"slnprune/internal/errors"
	"slnprune/internal/slogutil"
	"slnprune/internal/workspace"
)

// TypeInfo describes one type that can be used as a pruning target.
type TypeInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind" yaml:"kind"`
	Projects []string `json:"projects" yaml:"projects"`
	Files    []string `json:"files" yaml:"files"`
}

// TypesResult lists the types declared in a solution.
type TypesResult struct {
	Success    bool                `json:"success" yaml:"success"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode  errors.ErrorCode    `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`
	Types      []TypeInfo          `json:"types" yaml:"types"`
	Warnings   []workspace.Warning `json:"warnings" yaml:"warnings"`
	DurationMs int64               `json:"durationMs" yaml:"durationMs"`
}

// ListTypes loads the solution named by opts and returns every top-level type
// it declares, sorted by name. A non-empty filter is a glob matched against the
// fully-qualified name, case-insensitively; "*" matches within a dotted name.
func ListTypes(ctx context.Context, opts Options, filter string) *TypesResult {
	start := time.Now()
	res := &TypesResult{Types: []TypeInfo{}, Warnings: []workspace.Warning{}}

	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
	}()

	s, err := load(ctx, opts, logger)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Warnings = append(res.Warnings, s.warnings...)

	symbols, err := s.model.Symbols(ctx)
	if err != nil {
		res.fail(classify(ctx, errors.InternalError, "cannot list types", err))
		return res
	}

	manifestDir := filepath.Dir(s.manifest)
	for _, id := range symbols {
		if filter != "" && !matchType(filter, string(id)) {
			continue
		}
		info := TypeInfo{Name: string(id), Kind: s.model.Kind(id), Projects: []string{}, Files: []string{}}
		seen := make(map[string]bool)
		for _, loc := range s.model.Declarations(id) {
			info.Files = append(info.Files, relativeTo(manifestDir, loc.File))
			if p := s.ws.ProjectByPath(loc.Project); p != nil && !seen[p.Name] {
				seen[p.Name] = true
				info.Projects = append(info.Projects, p.Name)
			}
		}
		res.Types = append(res.Types, info)
	}

	res.Success = true
	logger.Debug("Listed types", "count", len(res.Types), "filter", filter)
	return res
}

// matchType treats dots as path separators so that "*" stays within one
// segment and "**" spans namespaces. A malformed pattern matches nothing.
func matchType(pattern, name string) bool {
	toPath := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, ".", "/"))
	}
	ok, _ := doublestar.Match(toPath(pattern), toPath(name))
	return ok
}

func (r *TypesResult) fail(err error) {
	var tmp Result
	tmp.fail(err)
	r.Success, r.Error, r.ErrorCode = false, tmp.Error, tmp.ErrorCode
}
