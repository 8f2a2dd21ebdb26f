package csharp

import (
	"context"
	"sort"
	"strings"
	"sync"

	"slnprune/internal/closure"
	"slnprune/internal/msbuild"
	"slnprune/internal/paths"
	"slnprune/internal/workspace"
)

// part is one declaration part bound to the project that compiles it.
// A linked file compiled by two projects yields one part per project.
type part struct {
	decl    *Declaration
	file    string
	project *workspace.Project
	usings  []UsingDirective // decl.Usings plus the project's global usings
}

type symbolEntry struct {
	id    closure.SymbolID
	kind  string
	parts []*part
}

// Model is a closure.Model over a loaded workspace.
type Model struct {
	ws       *workspace.Workspace
	symbols  map[closure.SymbolID]*symbolEntry
	names    map[string]closure.SymbolID // fully-qualified names, nested types included, to top-level symbols
	sorted   []closure.SymbolID
	visible  map[*workspace.Project]map[*workspace.Project]bool
	warnings []workspace.Warning

	mu   sync.Mutex
	deps map[closure.SymbolID][]closure.SymbolID
}

var _ closure.Model = (*Model)(nil)

// NewModel indexes parsed files against the workspace's projects. Entries of
// files may be nil for sources that could not be parsed.
func NewModel(ws *workspace.Workspace, files []*FileFacts, warnings []workspace.Warning) *Model {
	m := &Model{
		ws:       ws,
		symbols:  make(map[closure.SymbolID]*symbolEntry),
		names:    make(map[string]closure.SymbolID),
		visible:  make(map[*workspace.Project]map[*workspace.Project]bool),
		warnings: warnings,
		deps:     make(map[closure.SymbolID][]closure.SymbolID),
	}

	byPath := make(map[string]*FileFacts, len(files))
	for _, f := range files {
		if f != nil {
			byPath[paths.Key(f.Path)] = f
		}
	}

	for _, proj := range ws.Projects {
		set := make(map[*workspace.Project]bool)
		for _, v := range ws.Visible(proj) {
			set[v] = true
		}
		m.visible[proj] = set

		globals := projectUsings(proj.Usings)
		for _, src := range proj.Sources {
			if f := byPath[paths.Key(src)]; f != nil {
				for _, u := range f.Usings {
					if u.Global {
						globals = append(globals, u)
					}
				}
			}
		}

		for _, src := range proj.Sources {
			f := byPath[paths.Key(src)]
			if f == nil {
				continue
			}
			for _, d := range f.Declarations {
				m.addPart(&part{
					decl:    d,
					file:    f.Path,
					project: proj,
					usings:  append(append([]UsingDirective(nil), d.Usings...), globals...),
				})
			}
		}
	}

	for id := range m.symbols {
		m.sorted = append(m.sorted, id)
	}
	sort.Slice(m.sorted, func(i, j int) bool { return m.sorted[i] < m.sorted[j] })

	return m
}

func projectUsings(items []msbuild.Using) []UsingDirective {
	out := make([]UsingDirective, 0, len(items))
	for _, u := range items {
		out = append(out, UsingDirective{
			Global: true,
			Static: u.Static,
			Alias:  u.Alias,
			Target: closure.NormalizeName(u.Namespace),
		})
	}
	return out
}

func (m *Model) addPart(p *part) {
	id := closure.SymbolID(p.decl.FullName())
	entry := m.symbols[id]
	if entry == nil {
		entry = &symbolEntry{id: id, kind: p.decl.Kind}
		m.symbols[id] = entry
	}
	entry.parts = append(entry.parts, p)

	m.names[string(id)] = id
	for _, nested := range p.decl.Nested {
		m.names[string(id)+"."+nested] = id
	}
}

// Warnings returns problems recorded while building the model.
func (m *Model) Warnings() []workspace.Warning {
	return m.warnings
}

// Lookup implements closure.Model. A nested type name resolves to its top-level container.
func (m *Model) Lookup(_ context.Context, name string) (closure.SymbolID, bool, error) {
	id, ok := m.names[name]
	return id, ok, nil
}

// Symbols implements closure.Model.
func (m *Model) Symbols(_ context.Context) ([]closure.SymbolID, error) {
	return m.sorted, nil
}

// Kind returns the declaration keyword of a symbol (class, struct, ...).
func (m *Model) Kind(id closure.SymbolID) string {
	if e := m.symbols[id]; e != nil {
		return e.kind
	}
	return ""
}

// Declarations implements closure.Model. Parts are ordered by project
// manifest position and then by file.
func (m *Model) Declarations(id closure.SymbolID) []closure.Location {
	e := m.symbols[id]
	if e == nil {
		return nil
	}
	out := make([]closure.Location, 0, len(e.parts))
	seen := make(map[closure.Location]bool, len(e.parts))
	for _, p := range e.parts {
		loc := closure.Location{File: p.file, Project: p.project.DescriptorPath}
		if !seen[loc] {
			seen[loc] = true
			out = append(out, loc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi := m.ws.Index(m.ws.ProjectByPath(out[i].Project))
		pj := m.ws.Index(m.ws.ProjectByPath(out[j].Project))
		if pi != pj {
			return pi < pj
		}
		return out[i].File < out[j].File
	})
	return out
}

// Dependencies implements closure.Model. Every occurrence in every part is
// resolved in that part's scope; the symbol itself is never reported.
func (m *Model) Dependencies(ctx context.Context, id closure.SymbolID) ([]closure.SymbolID, error) {
	m.mu.Lock()
	cached, ok := m.deps[id]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	e := m.symbols[id]
	if e == nil {
		return nil, nil
	}

	found := make(map[closure.SymbolID]bool)
	for _, p := range e.parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, ref := range p.decl.Refs {
			if dep, ok := m.resolve(p, ref); ok && dep != id {
				found[dep] = true
			}
		}
		for _, dep := range m.staticImports(p) {
			if dep != id {
				found[dep] = true
			}
		}
	}

	out := make([]closure.SymbolID, 0, len(found))
	for dep := range found {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	m.mu.Lock()
	m.deps[id] = out
	m.mu.Unlock()
	return out, nil
}

// References implements closure.Model. Only occurrences whose text can name
// the target are resolved, and each must resolve to exactly the target.
func (m *Model) References(ctx context.Context, referencer, target closure.SymbolID) (bool, error) {
	if referencer == target {
		return false, nil
	}
	e := m.symbols[referencer]
	if e == nil {
		return false, nil
	}
	simple := target.SimpleName()

	for _, p := range e.parts {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		for _, ref := range p.decl.Refs {
			if !mentions(expandAlias(ref.Name, p.usings), simple, ref.Kind == RefAttribute) {
				continue
			}
			if dep, ok := m.resolve(p, ref); ok && dep == target {
				return true, nil
			}
		}
		for _, dep := range m.staticImports(p) {
			if dep == target {
				return true, nil
			}
		}
	}
	return false, nil
}

// mentions reports whether some segment of a dotted name is simple, ignoring arity.
func mentions(name, simple string, attribute bool) bool {
	for _, seg := range strings.Split(name, ".") {
		if i := strings.IndexByte(seg, '`'); i >= 0 {
			seg = seg[:i]
		}
		if seg == simple || (attribute && seg+"Attribute" == simple) {
			return true
		}
	}
	return false
}

func expandAlias(name string, usings []UsingDirective) string {
	first, rest, _ := strings.Cut(name, ".")
	for _, u := range usings {
		if u.Alias != "" && u.Alias == first {
			if rest == "" {
				return u.Target
			}
			return u.Target + "." + rest
		}
	}
	return name
}

// staticImports resolves the types brought in by using static directives.
func (m *Model) staticImports(p *part) []closure.SymbolID {
	var out []closure.SymbolID
	for _, u := range p.usings {
		if !u.Static || u.Alias != "" {
			continue
		}
		if id, ok := m.visibleLookup(p, u.Target); ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *Model) resolve(p *part, ref Ref) (closure.SymbolID, bool) {
	if id, ok := m.resolveName(p, ref.Name); ok {
		return id, true
	}
	if ref.Kind == RefAttribute && !strings.HasSuffix(ref.Name, "Attribute") {
		return m.resolveName(p, ref.Name+"Attribute")
	}
	return "", false
}

// resolveName binds a dotted name the way the compiler looks it up from
// inside the declaration: nested types of the declaration itself, using
// aliases, the enclosing namespaces innermost first, the global namespace,
// and finally the imported namespaces and static types.
func (m *Model) resolveName(p *part, name string) (closure.SymbolID, bool) {
	first, rest, _ := strings.Cut(name, ".")

	for _, nested := range p.decl.Nested {
		if nested == first {
			return closure.SymbolID(p.decl.FullName()), true
		}
	}

	for _, u := range p.usings {
		if u.Alias == "" || u.Alias != first {
			continue
		}
		target := u.Target
		if rest != "" {
			target += "." + rest
		}
		return m.visibleLookup(p, target)
	}

	for ns := p.decl.Namespace; ns != ""; ns = parentNamespace(ns) {
		if id, ok := m.visibleLookup(p, ns+"."+name); ok {
			return id, true
		}
	}
	if id, ok := m.visibleLookup(p, name); ok {
		return id, true
	}

	for _, u := range p.usings {
		if u.Alias != "" {
			continue
		}
		if id, ok := m.visibleLookup(p, u.Target+"."+name); ok {
			return id, true
		}
	}
	return "", false
}

func parentNamespace(ns string) string {
	if i := strings.LastIndexByte(ns, '.'); i >= 0 {
		return ns[:i]
	}
	return ""
}

// visibleLookup finds a symbol by fully-qualified name that is declared in a
// project visible from the part's project.
func (m *Model) visibleLookup(p *part, fqn string) (closure.SymbolID, bool) {
	id, ok := m.names[fqn]
	if !ok {
		return "", false
	}
	visible := m.visible[p.project]
	for _, other := range m.symbols[id].parts {
		if visible[other.project] {
			return id, true
		}
	}
	return "", false
}
