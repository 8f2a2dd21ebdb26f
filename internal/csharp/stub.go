//go:build !cgo

package csharp

import (
	"context"
	"errors"
	"log/slog"

	"slnprune/internal/workspace"
)

// ErrNoCGO is returned when C# parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("C# analysis requires CGO (tree-sitter)")

// Options controls model loading.
type Options struct {
	Parallelism      int
	MaxFileSizeBytes int64
	Logger           *slog.Logger
}

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a new C# parser.
// Returns nil when CGO is disabled.
func NewParser() *Parser {
	return nil
}

// Parse returns ErrNoCGO.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*FileFacts, error) {
	return nil, ErrNoCGO
}

// IsAvailable returns whether C# parsing is available.
// Returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// Load returns ErrNoCGO.
func Load(ctx context.Context, ws *workspace.Workspace, opts Options) (*Model, error) {
	return nil, ErrNoCGO
}
