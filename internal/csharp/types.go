// Package csharp builds a semantic model of C# sources with tree-sitter:
// which top-level types each file declares and which type names each
// declaration uses, resolved against the workspace.
package csharp

import "strconv"

// RefKind classifies where a type name occurs in a declaration.
type RefKind int

const (
	RefMember     RefKind = iota // member signatures: field, property, parameter and return types
	RefBase                      // base class and implemented interfaces
	RefConstraint                // generic constraints
	RefAttribute                 // attribute names
	RefBody                      // member bodies and initializers
)

func (k RefKind) String() string {
	switch k {
	case RefMember:
		return "member"
	case RefBase:
		return "base"
	case RefConstraint:
		return "constraint"
	case RefAttribute:
		return "attribute"
	case RefBody:
		return "body"
	default:
		return "RefKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Ref is one type name occurrence. Name is dotted and arity suffixed
// (Collections.Repo`1); it is resolved later in the scope of its declaration.
type Ref struct {
	Name string
	Kind RefKind
	Line int
}

// UsingDirective is a using directive in scope of a declaration.
type UsingDirective struct {
	Global bool
	Static bool
	Alias  string
	Target string // normalized name of the namespace or type
}

// Declaration is one declaration part of a top-level type. Nested types are
// folded into their outermost container.
type Declaration struct {
	Name      string
	Arity     int
	Namespace string // "" for the global namespace
	Kind      string // class, struct, interface, enum, record, delegate
	Partial   bool
	Line      int

	// Nested holds the names of nested types relative to this declaration, e.g. "Node`1" or "Node`1.Cursor".
	Nested []string

	// Usings holds file level directives plus those of enclosing namespace blocks.
	Usings []UsingDirective
	Refs   []Ref
}

// FullName returns the arity suffixed fully-qualified name.
func (d *Declaration) FullName() string {
	name := d.Name
	if d.Arity > 0 {
		name += "`" + strconv.Itoa(d.Arity)
	}
	if d.Namespace == "" {
		return name
	}
	return d.Namespace + "." + name
}

// FileFacts is everything extracted from one source file.
type FileFacts struct {
	Path         string
	Usings       []UsingDirective // file level only
	Declarations []*Declaration
	HasErrors    bool // the parse tree contains error nodes
}
