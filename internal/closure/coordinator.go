package closure

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WorkKind is the kind of a queued work item.
type WorkKind int

const (
	// ExpandDependencies admits the workspace types a symbol uses.
	ExpandDependencies WorkKind = iota
	// ExpandReferences scans the workspace for types that use a symbol.
	ExpandReferences
)

func (k WorkKind) String() string {
	switch k {
	case ExpandDependencies:
		return "dependencies"
	case ExpandReferences:
		return "references"
	default:
		return fmt.Sprintf("WorkKind(%d)", int(k))
	}
}

// WorkItem is one unit of closure work.
type WorkItem struct {
	Kind   WorkKind
	Symbol SymbolID
}

// Warning records a symbol that could not be fully analyzed. The run continues.
type Warning struct {
	Symbol  SymbolID
	Message string
}

// Result is the fixpoint of a closure run.
type Result struct {
	Seed        SymbolID
	Included    []SymbolID // sorted
	Referencers []SymbolID // sorted

	// DependencyCount is the number of included symbols that are neither the seed nor referencers.
	DependencyCount int
	DependentCount  int

	Rounds   int
	Warnings []Warning
	Duration time.Duration
}

// Coordinator drives dependency and reference expansion to a joint fixpoint.
type Coordinator struct {
	model  Model
	logger *slog.Logger
}

// NewCoordinator creates a coordinator over model.
func NewCoordinator(model Model, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{model: model, logger: logger}
}

// run holds the queues and state of one Run call.
type run struct {
	c        *Coordinator
	state    *State
	deps     []SymbolID
	refs     []SymbolID
	symbols  []SymbolID
	warnings []Warning
}

// Run computes the closure of seed. Work proceeds in rounds: each round drains
// the dependency queue and then the reference queue, and the run ends when a
// round leaves both queues empty. Dependencies are expanded for every admitted
// symbol; references are expanded for the seed and for every referencer.
// Cancellation is checked between work items.
func (c *Coordinator) Run(ctx context.Context, seed SymbolID) (*Result, error) {
	start := time.Now()

	r := &run{c: c, state: NewState()}
	r.state.onInclude = func(id SymbolID) {
		c.logger.Debug("Admitted symbol", "symbol", string(id))
	}

	r.state.Include(seed)
	r.deps = append(r.deps, seed)
	r.refs = append(r.refs, seed)

	rounds := 0
	for len(r.deps) > 0 || len(r.refs) > 0 {
		rounds++
		before := r.state.Len()

		for len(r.deps) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("closure cancelled in round %d: %w", rounds, err)
			}
			id := r.deps[0]
			r.deps = r.deps[1:]
			r.expandDependencies(ctx, id)
		}

		for len(r.refs) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("closure cancelled in round %d: %w", rounds, err)
			}
			id := r.refs[0]
			r.refs = r.refs[1:]
			if err := r.expandReferences(ctx, id); err != nil {
				return nil, err
			}
		}

		c.logger.Debug("Closure round finished",
			"round", rounds,
			"admitted", r.state.Len()-before,
			"included", r.state.Len(),
		)
	}

	res := &Result{
		Seed:            seed,
		Included:        r.state.Included(),
		Referencers:     r.state.Referencers(),
		DependencyCount: r.state.Len() - r.state.ReferencerCount() - 1,
		DependentCount:  r.state.ReferencerCount(),
		Rounds:          rounds,
		Warnings:        r.warnings,
		Duration:        time.Since(start),
	}

	c.logger.Info("Closure complete",
		"seed", string(seed),
		"included", len(res.Included),
		"dependencies", res.DependencyCount,
		"dependents", res.DependentCount,
		"rounds", rounds,
	)
	return res, nil
}

// expandDependencies marks id processed before admitting anything, so cycles
// visit each symbol once.
func (r *run) expandDependencies(ctx context.Context, id SymbolID) {
	if !r.state.MarkDependenciesProcessed(id) {
		return
	}

	deps, err := r.c.model.Dependencies(ctx, id)
	if err != nil {
		r.warn(id, fmt.Sprintf("dependencies incomplete: %v", err))
	}
	for _, dep := range deps {
		if r.state.Include(dep) {
			r.deps = append(r.deps, dep)
		}
	}
}

// expandReferences scans every workspace symbol not yet included. Confirmed
// referencers are admitted and queued for both kinds of expansion.
func (r *run) expandReferences(ctx context.Context, id SymbolID) error {
	if !r.state.MarkReferencesProcessed(id) {
		return nil
	}

	if r.symbols == nil {
		symbols, err := r.c.model.Symbols(ctx)
		if err != nil {
			return fmt.Errorf("enumerating workspace symbols: %w", err)
		}
		r.symbols = symbols
	}

	for _, candidate := range r.symbols {
		if r.state.IsIncluded(candidate) {
			continue
		}
		ok, err := r.c.model.References(ctx, candidate, id)
		if err != nil {
			r.warn(candidate, fmt.Sprintf("reference check against %s failed: %v", id, err))
			continue
		}
		if ok && r.state.IncludeReferencer(candidate) {
			r.deps = append(r.deps, candidate)
			r.refs = append(r.refs, candidate)
		}
	}
	return nil
}

func (r *run) warn(id SymbolID, msg string) {
	r.warnings = append(r.warnings, Warning{Symbol: id, Message: msg})
	r.c.logger.Warn("Partial analysis", "symbol", string(id), "error", msg)
}
