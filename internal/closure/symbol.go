// Package closure computes the set of types needed to compile a target type:
// everything it depends on and everything that depends on it, transitively.
package closure

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"slnprune/internal/errors"
)

// SymbolID identifies a type by its fully-qualified name. Generic definitions
// carry a backtick arity suffix (Ns.Repository`1), so every construction of a
// generic type maps to the same unbound definition.
type SymbolID string

// SimpleName returns the unqualified name without the arity suffix.
func (id SymbolID) SimpleName() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '`'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Namespace returns the namespace part of the name, or "" for the global namespace.
func (id SymbolID) Namespace() string {
	s := string(id)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return ""
}

func (id SymbolID) String() string {
	return string(id)
}

// Location is one declaration part of a symbol.
type Location struct {
	File    string // absolute path of the source file
	Project string // absolute path of the owning project descriptor
}

// Model is the semantic view of a workspace the closure is computed over.
// Implementations must only report symbols declared inside the workspace.
type Model interface {
	// Lookup finds the symbol declared under an exact fully-qualified name.
	Lookup(ctx context.Context, name string) (SymbolID, bool, error)

	// Symbols enumerates every top-level type declared in the workspace.
	Symbols(ctx context.Context) ([]SymbolID, error)

	// Dependencies returns the workspace types id uses directly, structurally
	// or inside member bodies, as unbound definitions.
	Dependencies(ctx context.Context, id SymbolID) ([]SymbolID, error)

	// References reports whether referencer's declaration uses target.
	References(ctx context.Context, referencer, target SymbolID) (bool, error)

	// Declarations returns every declaration part of id.
	Declarations(id SymbolID) []Location
}

// NormalizeName converts a type name as written in source or on the command
// line to SymbolID form. Generic argument lists become arity suffixes, so
// Ns.Map<K, V> becomes Ns.Map`2. A global:: prefix is dropped and + is
// accepted as the nested type separator.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "global::")
	name = strings.ReplaceAll(name, "::", ".")
	name = strings.ReplaceAll(name, "+", ".")

	var b strings.Builder
	depth := 0
	commas := 0
	for _, r := range name {
		switch {
		case r == '<':
			if depth == 0 {
				commas = 0
			}
			depth++
		case r == '>':
			depth--
			if depth == 0 {
				b.WriteByte('`')
				b.WriteString(strconv.Itoa(commas + 1))
			}
		case r == ',' && depth == 1:
			commas++
		case depth > 0, unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve finds the seed symbol for a run. It fails with TYPE_NOT_FOUND when
// no project declares a type with that fully-qualified name.
func Resolve(ctx context.Context, model Model, name string) (SymbolID, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return "", errors.Errorf(errors.InputInvalid, "type name is empty")
	}

	id, ok, err := model.Lookup(ctx, normalized)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf(errors.TypeNotFound, "type %q was not found in any project of the solution", name)
	}
	return id, nil
}
