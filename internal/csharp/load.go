//go:build cgo

package csharp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"slnprune/internal/paths"
	"slnprune/internal/slogutil"
	"slnprune/internal/workspace"
)

// Options controls model loading.
type Options struct {
	Parallelism      int
	MaxFileSizeBytes int64 // 0 means no limit
	Logger           *slog.Logger
}

// Load parses every source file of the workspace concurrently and builds the
// model. A file that cannot be read or parsed is recorded as a warning and
// skipped. Only cancellation makes Load fail.
func Load(ctx context.Context, ws *workspace.Workspace, opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	var files []string
	seen := make(map[string]bool)
	for _, p := range ws.Projects {
		for _, src := range p.Sources {
			if key := paths.Key(src); !seen[key] {
				seen[key] = true
				files = append(files, src)
			}
		}
	}

	facts := make([]*FileFacts, len(files))
	var (
		mu       sync.Mutex
		warnings []workspace.Warning
	)
	warn := func(file, msg string) {
		mu.Lock()
		warnings = append(warnings, workspace.Warning{File: file, Message: msg})
		mu.Unlock()
		logger.Warn("Partial analysis", "file", file, "error", msg)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, err := os.Stat(path)
			if err != nil {
				warn(path, fmt.Sprintf("cannot read source: %v", err))
				return nil
			}
			if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
				warn(path, fmt.Sprintf("skipped: %s exceeds the %s limit",
					humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(opts.MaxFileSizeBytes))))
				return nil
			}

			source, err := os.ReadFile(path)
			if err != nil {
				warn(path, fmt.Sprintf("cannot read source: %v", err))
				return nil
			}

			f, err := NewParser().Parse(gctx, path, source)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				warn(path, err.Error())
				return nil
			}
			if f.HasErrors {
				warn(path, "syntax errors found; declarations may be incomplete")
			}
			facts[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := NewModel(ws, facts, warnings)
	logger.Info("Semantic model built",
		"files", len(files),
		"types", len(m.sorted),
		"warnings", len(warnings),
	)
	return m, nil
}
