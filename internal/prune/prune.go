// Package prune runs the whole pipeline: load the solution, compute the
// closure of a target type, and write the reduced solution.
package prune

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slnprune/internal/closure"
	"slnprune/internal/config"
	"slnprune/internal/csharp"
	"slnprune/internal/errors"
	"slnprune/internal/materialize"
	"slnprune/internal/paths"
	"slnprune/internal/selection"
	"slnprune/internal/slogutil"
	"slnprune/internal/solution"
	"slnprune/internal/workspace"
)

// Options describes one pruning run.
type Options struct {
	ManifestPath string
	TypeName     string

	// OutputDir defaults to <manifest-dir>/<manifest-name><output.suffix>.
	OutputDir string

	// ConfigPath names an explicit config file. When empty, slnprune.* next to
	// the manifest is used if present.
	ConfigPath string
	// Config, when set, is used instead of loading one.
	Config *config.Config

	// Archive forces a .tar.zst of the output regardless of configuration.
	Archive bool

	Logger *slog.Logger
}

// Result is the structured outcome of a run. It is always returned, also on failure.
type Result struct {
	Success   bool             `json:"success" yaml:"success"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorCode errors.ErrorCode `json:"errorCode,omitempty" yaml:"errorCode,omitempty"`

	TargetType         string `json:"targetType,omitempty" yaml:"targetType,omitempty"`
	OutputManifestPath string `json:"outputManifestPath,omitempty" yaml:"outputManifestPath,omitempty"`
	ArchivePath        string `json:"archivePath,omitempty" yaml:"archivePath,omitempty"`

	IncludedTypes    []string `json:"includedTypes" yaml:"includedTypes"`
	IncludedFiles    []string `json:"includedFiles" yaml:"includedFiles"`
	IncludedProjects []string `json:"includedProjects" yaml:"includedProjects"`
	DependencyCount  int      `json:"dependencyCount" yaml:"dependencyCount"`
	DependentCount   int      `json:"dependentCount" yaml:"dependentCount"`

	Warnings     []workspace.Warning `json:"warnings" yaml:"warnings"`
	Rounds       int                 `json:"rounds" yaml:"rounds"`
	BytesWritten int64               `json:"bytesWritten" yaml:"bytesWritten"`
	DurationMs   int64               `json:"durationMs" yaml:"durationMs"`
}

// Run executes a pruning run. It never returns a nil result; failures are
// reported through Success, Error and ErrorCode.
func Run(ctx context.Context, opts Options) (res *Result) {
	start := time.Now()
	res = &Result{
		IncludedTypes:    []string{},
		IncludedFiles:    []string{},
		IncludedProjects: []string{},
		Warnings:         []workspace.Warning{},
	}

	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Pruning panicked", "panic", r)
			res.fail(errors.Errorf(errors.InternalError, "unexpected failure: %v", r))
		}
		res.DurationMs = time.Since(start).Milliseconds()
	}()

	if err := run(ctx, opts, logger, res); err != nil {
		res.fail(err)
		logger.Error("Pruning failed", "code", string(res.ErrorCode), "error", res.Error)
		return res
	}
	res.Success = true
	return res
}

func (r *Result) fail(err error) {
	r.Success = false
	r.ErrorCode = errors.CodeOf(err)
	r.Error = err.Error()
	var pe *errors.PruneError
	if stderrors.As(err, &pe) {
		r.Error = pe.Message
		if cause := pe.Unwrap(); cause != nil {
			r.Error += ": " + cause.Error()
		}
	}
}

// session is the loaded input shared by the commands of this package.
type session struct {
	manifest string
	cfg      *config.Config
	ws       *workspace.Workspace
	model    *csharp.Model
	warnings []workspace.Warning
}

func load(ctx context.Context, opts Options, logger *slog.Logger) (*session, error) {
	if strings.TrimSpace(opts.ManifestPath) == "" {
		return nil, errors.Errorf(errors.InputInvalid, "manifest path is required")
	}

	manifest, err := filepath.Abs(opts.ManifestPath)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "invalid manifest path", err)
	}
	if !strings.EqualFold(filepath.Ext(manifest), ".sln") {
		return nil, errors.Errorf(errors.InputInvalid, "%s is not a solution file", opts.ManifestPath)
	}
	if info, err := os.Stat(manifest); err != nil {
		return nil, errors.New(errors.ManifestUnreadable, fmt.Sprintf("cannot read %s", manifest), err)
	} else if info.IsDir() {
		return nil, errors.Errorf(errors.InputInvalid, "%s is a directory", manifest)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg, err = config.LoadConfig(filepath.Dir(manifest), opts.ConfigPath)
		if err != nil {
			return nil, errors.New(errors.InputInvalid, "cannot load configuration", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.InputInvalid, "invalid configuration", err)
	}

	ws, err := workspace.Load(ctx, manifest, workspace.Options{
		ExcludeDirs: cfg.Analysis.ExcludeDirs,
		Logger:      logger,
	})
	if err != nil {
		return nil, classify(ctx, errors.ManifestUnreadable, "cannot load solution", err)
	}

	model, err := csharp.Load(ctx, ws, csharp.Options{
		Parallelism:      cfg.Analysis.Parallelism,
		MaxFileSizeBytes: cfg.Analysis.MaxFileSizeBytes,
		Logger:           logger,
	})
	if err != nil {
		return nil, classify(ctx, errors.InternalError, "cannot build semantic model", err)
	}

	s := &session{manifest: manifest, cfg: cfg, ws: ws, model: model}
	s.warnings = append(s.warnings, ws.Warnings...)
	s.warnings = append(s.warnings, sortedWarnings(model.Warnings())...)
	return s, nil
}

func run(ctx context.Context, opts Options, logger *slog.Logger, res *Result) error {
	if closure.NormalizeName(opts.TypeName) == "" {
		return errors.Errorf(errors.InputInvalid, "type name is required")
	}

	s, err := load(ctx, opts, logger)
	if err != nil {
		return err
	}
	manifest, cfg, ws, model := s.manifest, s.cfg, s.ws, s.model
	manifestDir := filepath.Dir(manifest)
	res.Warnings = append(res.Warnings, s.warnings...)

	outputDir := opts.OutputDir
	if outputDir == "" {
		name := strings.TrimSuffix(filepath.Base(manifest), filepath.Ext(manifest))
		outputDir = filepath.Join(manifestDir, name+cfg.Output.Suffix)
	}

	// Closure
	seed, err := closure.Resolve(ctx, model, opts.TypeName)
	if err != nil {
		return classify(ctx, errors.InternalError, "cannot resolve target type", err)
	}
	res.TargetType = string(seed)

	cl, err := closure.NewCoordinator(model, logger).Run(ctx, seed)
	if err != nil {
		return classify(ctx, errors.InternalError, "closure failed", err)
	}
	for _, w := range cl.Warnings {
		res.Warnings = append(res.Warnings, workspace.Warning{Message: fmt.Sprintf("%s: %s", w.Symbol, w.Message)})
	}

	sel, err := selection.Map(model, ws, cl.Included)
	if err != nil {
		return errors.New(errors.InternalError, "cannot map closure to files", err)
	}

	// Manifest
	refs := make([]solution.ProjectRef, 0, len(sel.Projects))
	descriptors := make([]string, 0, len(sel.Projects))
	for _, p := range sel.Projects {
		refs = append(refs, solution.ProjectRef{Name: p.Name, DescriptorPath: p.DescriptorPath, SDKStyle: p.SDKStyle})
		descriptors = append(descriptors, p.DescriptorPath)
	}
	rebuilt, err := solution.Rebuild(manifest, refs, solution.RebuildOptions{
		Configurations: cfg.Manifest.Configurations,
		Platform:       cfg.Manifest.Platform,
		Deterministic:  cfg.Identity.Deterministic,
	})
	if err != nil {
		return errors.New(errors.ManifestUnreadable, "cannot rebuild solution", err)
	}
	for _, name := range rebuilt.Minted {
		logger.Info("Minted project identity", "project", name)
	}

	// Last point at which cancellation is honored.
	if err := ctx.Err(); err != nil {
		return errors.New(errors.Cancelled, "run cancelled before writing output", err)
	}

	out, err := materialize.Write(materialize.Plan{
		ManifestPath:          manifest,
		OutputDir:             outputDir,
		Manifest:              rebuilt.Bytes(),
		Descriptors:           descriptors,
		Files:                 sel.Files,
		CopyBuildSupportFiles: cfg.Output.CopyBuildSupportFiles,
		Archive:               opts.Archive || cfg.Output.Archive,
		Logger:                logger,
	})
	if err != nil {
		return errors.New(errors.OutputWriteFailed, "cannot write output", err)
	}

	for _, id := range cl.Included {
		res.IncludedTypes = append(res.IncludedTypes, string(id))
	}
	for _, f := range sel.Files {
		res.IncludedFiles = append(res.IncludedFiles, relativeTo(manifestDir, f))
	}
	sort.Strings(res.IncludedFiles)
	res.IncludedProjects = sel.ProjectNames()
	res.DependencyCount = cl.DependencyCount
	res.DependentCount = cl.DependentCount
	res.Rounds = cl.Rounds
	res.OutputManifestPath = out.ManifestPath
	res.ArchivePath = out.ArchivePath
	for _, msg := range out.Warnings {
		res.Warnings = append(res.Warnings, workspace.Warning{Message: msg})
	}
	res.BytesWritten = out.Bytes

	logger.Info("Pruned solution written",
		"target", res.TargetType,
		"types", len(res.IncludedTypes),
		"files", len(res.IncludedFiles),
		"projects", len(res.IncludedProjects),
		"output", res.OutputManifestPath,
	)
	return nil
}

// classify maps a pipeline error onto a result code. Cancellation wins over
// everything; errors that already carry a code keep it.
func classify(ctx context.Context, fallback errors.ErrorCode, msg string, err error) error {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.New(errors.Cancelled, "run cancelled", err)
	}
	var pe *errors.PruneError
	if stderrors.As(err, &pe) {
		return err
	}
	return errors.New(fallback, msg, err)
}

func relativeTo(base, path string) string {
	rel, err := paths.CanonicalizePath(path, base)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}

func sortedWarnings(ws []workspace.Warning) []workspace.Warning {
	out := append([]workspace.Warning(nil), ws...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Message < out[j].Message
	})
	return out
}
