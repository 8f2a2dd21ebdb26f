//go:build cgo

package csharp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"slnprune/internal/closure"
)

// Parser wraps a tree-sitter parser configured for C#. It is not safe for
// concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new C# parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	return &Parser{parser: p}
}

// IsAvailable returns whether C# parsing is available.
func IsAvailable() bool {
	return true
}

// Parse extracts declarations and type name occurrences from one source file.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*FileFacts, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()

	x := &extractor{
		src:   source,
		facts: &FileFacts{Path: path, HasErrors: root.HasError()},
	}
	x.container(root, "", nil)
	return x.facts, nil
}

var typeDeclarations = map[string]string{
	"class_declaration":         "class",
	"struct_declaration":        "struct",
	"interface_declaration":     "interface",
	"enum_declaration":          "enum",
	"record_declaration":        "record",
	"record_struct_declaration": "record",
	"delegate_declaration":      "delegate",
}

// declaresName lists nodes whose "name" field introduces a new name rather than using one.
var declaresName = map[string]bool{
	"class_declaration":         true,
	"struct_declaration":        true,
	"interface_declaration":     true,
	"enum_declaration":          true,
	"record_declaration":        true,
	"record_struct_declaration": true,
	"delegate_declaration":      true,
	"method_declaration":        true,
	"constructor_declaration":   true,
	"destructor_declaration":    true,
	"property_declaration":      true,
	"event_declaration":         true,
	"enum_member_declaration":   true,
	"variable_declarator":       true,
	"parameter":                 true,
	"type_parameter":            true,
	"local_function_statement":  true,
	"catch_declaration":         true,
	"tuple_element":             true,
	"operator_declaration":      true,
}

// nonReferenceParents are parents whose identifier children never name a type.
var nonReferenceParents = map[string]bool{
	"name_colon":                         true,
	"name_equals":                        true,
	"single_variable_designation":        true,
	"parenthesized_variable_designation": true,
	"labeled_statement":                  true,
	"goto_statement":                     true,
	"type_parameter":                     true,
	"implicit_parameter":                 true,
}

type extractor struct {
	src   []byte
	facts *FileFacts
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

// container walks a compilation unit, namespace body or file-scoped namespace.
func (x *extractor) container(node *sitter.Node, ns string, inherited []UsingDirective) {
	scope := append([]UsingDirective(nil), inherited...)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "using_directive" {
			continue
		}
		if u, ok := parseUsing(x.text(child)); ok {
			scope = append(scope, u)
			if node.Type() == "compilation_unit" {
				x.facts.Usings = append(x.facts.Usings, u)
			}
		}
	}

	current := ns
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_declaration":
			name := qualify(current, x.fieldText(child, "name"))
			if body := child.ChildByFieldName("body"); body != nil {
				x.container(body, name, scope)
			}
		case "file_scoped_namespace_declaration":
			// Members follow as siblings in older grammars and as children in newer ones.
			current = qualify(ns, x.fieldText(child, "name"))
			x.container(child, current, scope)
		default:
			if _, ok := typeDeclarations[child.Type()]; ok {
				x.typeDeclaration(child, current, scope)
			}
		}
	}
}

func (x *extractor) fieldText(n *sitter.Node, field string) string {
	f := n.ChildByFieldName(field)
	if f == nil {
		return ""
	}
	return closure.NormalizeName(x.text(f))
}

func qualify(ns, name string) string {
	switch {
	case name == "":
		return ns
	case ns == "":
		return name
	default:
		return ns + "." + name
	}
}

func (x *extractor) typeDeclaration(node *sitter.Node, ns string, scope []UsingDirective) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := &Declaration{
		Name:      x.text(nameNode),
		Arity:     typeParameterCount(node),
		Namespace: ns,
		Kind:      typeDeclarations[node.Type()],
		Partial:   x.hasModifier(node, "partial"),
		Line:      int(node.StartPoint().Row) + 1,
		Usings:    scope,
	}
	x.collectNested(node, d, "")

	w := &refWalker{x: x, decl: d, seen: make(map[string]bool), skip: make(map[uint32]bool)}
	w.walk(node, RefMember)

	x.facts.Declarations = append(x.facts.Declarations, d)
}

func typeParameterCount(node *sitter.Node) int {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "type_parameter_list" {
			continue
		}
		count := 0
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if child.NamedChild(j).Type() == "type_parameter" {
				count++
			}
		}
		return count
	}
	return 0
}

func (x *extractor) hasModifier(node *sitter.Node, modifier string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "modifier" && strings.TrimSpace(x.text(child)) == modifier {
			return true
		}
	}
	return false
}

// collectNested records nested type names relative to the top-level declaration.
func (x *extractor) collectNested(node *sitter.Node, d *Declaration, prefix string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		body := node.NamedChild(i)
		if body.Type() != "declaration_list" {
			continue
		}
		for j := 0; j < int(body.NamedChildCount()); j++ {
			member := body.NamedChild(j)
			if _, ok := typeDeclarations[member.Type()]; !ok {
				continue
			}
			nameNode := member.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := x.text(nameNode)
			if n := typeParameterCount(member); n > 0 {
				name += fmt.Sprintf("`%d", n)
			}
			d.Nested = append(d.Nested, prefix+name)
			x.collectNested(member, d, prefix+name+".")
		}
	}
}

// memberDeclarations open a scope of parameters and locals.
var memberDeclarations = map[string]bool{
	"method_declaration":              true,
	"constructor_declaration":         true,
	"destructor_declaration":          true,
	"operator_declaration":            true,
	"conversion_operator_declaration": true,
	"property_declaration":            true,
	"indexer_declaration":             true,
	"event_declaration":               true,
	"field_declaration":               true,
	"event_field_declaration":         true,
}

// typePositionParents are parents whose identifier children are always types.
var typePositionParents = map[string]bool{
	"nullable_type":             true,
	"array_type":                true,
	"pointer_type":              true,
	"ref_type":                  true,
	"scoped_type":               true,
	"type_argument_list":        true,
	"base_list":                 true,
	"type_parameter_constraint": true,
	"type_pattern":              true,
}

// refWalker collects the type name occurrences of one declaration.
type refWalker struct {
	x    *extractor
	decl *Declaration
	seen map[string]bool
	skip map[uint32]bool // start bytes of identifiers in declaration position

	// Simple names bound to values in the current scope. A value name hides a
	// type of the same name in expression position.
	members map[string]bool
	locals  map[string]bool
}

func (w *refWalker) add(name string, kind RefKind, n *sitter.Node) {
	if name == "" {
		return
	}
	key := kind.String() + ":" + name
	if w.seen[key] {
		return
	}
	w.seen[key] = true
	w.decl.Refs = append(w.decl.Refs, Ref{Name: name, Kind: kind, Line: int(n.StartPoint().Row) + 1})
}

func (w *refWalker) walk(n *sitter.Node, kind RefKind) {
	t := n.Type()

	if _, ok := typeDeclarations[t]; ok {
		saved := w.members
		w.members = w.memberNames(n, saved)
		defer func() { w.members = saved }()
	}
	if memberDeclarations[t] {
		saved := w.locals
		w.locals = make(map[string]bool)
		w.collectLocals(n)
		defer func() { w.locals = saved }()
	}

	if declaresName[t] {
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			w.skip[name.StartByte()] = true
		}
	}
	if t == "foreach_statement" {
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			w.skip[left.StartByte()] = true
		}
	}

	switch t {
	case "base_list":
		kind = RefBase
	case "type_parameter_constraints_clause":
		kind = RefConstraint
	case "block", "arrow_expression_clause", "equals_value_clause":
		kind = RefBody
	case "attribute":
		if name := n.ChildByFieldName("name"); name != nil {
			w.add(closure.NormalizeName(w.x.text(name)), RefAttribute, name)
			w.walkTypeArguments(name, kind)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "attribute_argument_list" {
				w.walk(child, RefAttribute)
			}
		}
		return
	case "qualified_name", "alias_qualified_name", "generic_name":
		if t != "generic_name" || !w.shadowed(n, w.genericBase(n)) {
			w.add(closure.NormalizeName(w.x.text(n)), kind, n)
		}
		w.walkTypeArguments(n, kind)
		return
	case "member_access_expression":
		if dotted, ok := w.dotted(n); ok {
			first, _, _ := strings.Cut(dotted, ".")
			if !w.shadowed(leftmost(n), first) {
				w.add(dotted, kind, n)
			}
		}
		if expr := n.ChildByFieldName("expression"); expr != nil {
			w.walk(expr, kind)
		}
		if name := n.ChildByFieldName("name"); name != nil && name.Type() == "generic_name" {
			w.walkTypeArguments(name, kind)
		}
		return
	case "identifier":
		if w.skip[n.StartByte()] {
			return
		}
		if parent := n.Parent(); parent != nil && nonReferenceParents[parent.Type()] {
			return
		}
		if w.shadowed(n, w.x.text(n)) {
			return
		}
		w.add(w.x.text(n), kind, n)
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), kind)
	}
}

// shadowed reports whether the simple name at n binds to a parameter, local
// or member rather than to a type. Names in type position are never shadowed.
func (w *refWalker) shadowed(n *sitter.Node, name string) bool {
	if n == nil || name == "" || (!w.locals[name] && !w.members[name]) {
		return false
	}
	return !inTypePosition(n)
}

func inTypePosition(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	if typePositionParents[parent.Type()] {
		return true
	}
	for _, field := range []string{"type", "returns"} {
		if f := parent.ChildByFieldName(field); f != nil && sameNode(f, n) {
			return true
		}
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func (w *refWalker) genericBase(n *sitter.Node) string {
	if id := firstIdentifier(n, "name"); id != nil {
		return w.x.text(id)
	}
	return ""
}

// leftmost returns the innermost expression of a member access chain.
func leftmost(n *sitter.Node) *sitter.Node {
	for n.Type() == "member_access_expression" {
		expr := n.ChildByFieldName("expression")
		if expr == nil {
			return n
		}
		n = expr
	}
	return n
}

// memberNames returns the value members of a type declaration added to those
// of its enclosing types: fields, properties, methods, events, enum members
// and primary constructor parameters.
func (w *refWalker) memberNames(node *sitter.Node, outer map[string]bool) map[string]bool {
	names := make(map[string]bool, len(outer))
	for k := range outer {
		names[k] = true
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "parameter_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				w.bind(names, child.NamedChild(j))
			}
		case "declaration_list", "enum_member_declaration_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				member := child.NamedChild(j)
				switch member.Type() {
				case "field_declaration", "event_field_declaration":
					for k := 0; k < int(member.NamedChildCount()); k++ {
						if vars := member.NamedChild(k); vars.Type() == "variable_declaration" {
							for v := 0; v < int(vars.NamedChildCount()); v++ {
								w.bind(names, vars.NamedChild(v))
							}
						}
					}
				case "property_declaration", "method_declaration", "event_declaration", "enum_member_declaration":
					w.bind(names, member)
				}
			}
		}
	}
	return names
}

// collectLocals binds every parameter and local declared inside a member.
// Scoping within the member body is not tracked.
func (w *refWalker) collectLocals(member *sitter.Node) {
	w.collect(w.locals, member)
}

func (w *refWalker) collect(names map[string]bool, n *sitter.Node) {
	w.bind(names, n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if _, ok := typeDeclarations[child.Type()]; ok {
			continue
		}
		w.collect(names, child)
	}
}

// bind records the value name n declares, if any. A value whose declared
// type has the same name as the value itself (Color Color) is not bound, so
// its uses keep counting as type references.
func (w *refWalker) bind(names map[string]bool, n *sitter.Node) {
	var name, typ *sitter.Node
	switch n.Type() {
	case "parameter", "catch_declaration", "property_declaration", "event_declaration", "local_function_statement":
		name, typ = n.ChildByFieldName("name"), n.ChildByFieldName("type")
	case "method_declaration":
		name, typ = n.ChildByFieldName("name"), n.ChildByFieldName("returns")
		if typ == nil {
			typ = n.ChildByFieldName("type")
		}
	case "enum_member_declaration":
		name = n.ChildByFieldName("name")
	case "variable_declarator":
		name = firstIdentifier(n, "name")
		if parent := n.Parent(); parent != nil && parent.Type() == "variable_declaration" {
			typ = parent.ChildByFieldName("type")
		}
	case "foreach_statement":
		name, typ = n.ChildByFieldName("left"), n.ChildByFieldName("type")
	case "single_variable_designation":
		name = firstIdentifier(n, "")
		if name == nil {
			name = n
		}
	case "implicit_parameter":
		name = n
	case "declaration_pattern", "declaration_expression":
		typ = n.ChildByFieldName("type")
		name = n.ChildByFieldName("name")
		for i := 0; name == nil && i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child.Type() == "identifier" && (typ == nil || !sameNode(child, typ)) {
				name = child
			}
		}
	}
	if name == nil || (name.Type() != "identifier" && name != n) {
		return
	}
	text := w.x.text(name)
	if typ != nil && closure.NormalizeName(w.x.text(typ)) == text {
		return
	}
	names[text] = true
}

// firstIdentifier returns the node of the named field, or the first identifier child.
func firstIdentifier(n *sitter.Node, field string) *sitter.Node {
	if field != "" {
		if f := n.ChildByFieldName(field); f != nil {
			return f
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == "identifier" {
			return child
		}
	}
	return nil
}

// walkTypeArguments visits the type argument lists inside a (possibly qualified) generic name.
func (w *refWalker) walkTypeArguments(n *sitter.Node, kind RefKind) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "type_argument_list":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				w.walk(child.NamedChild(j), kind)
			}
		case "generic_name", "qualified_name", "alias_qualified_name":
			w.walkTypeArguments(child, kind)
		}
	}
}

// dotted renders a member access chain made only of names, such as
// Contoso.Data.Repo<int>.Create, as a normalized dotted name.
func (w *refWalker) dotted(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "identifier", "generic_name", "qualified_name", "alias_qualified_name":
		return closure.NormalizeName(w.x.text(n)), true
	case "member_access_expression":
		expr := n.ChildByFieldName("expression")
		name := n.ChildByFieldName("name")
		if expr == nil || name == nil {
			return "", false
		}
		left, ok := w.dotted(expr)
		if !ok {
			return "", false
		}
		right, ok := w.dotted(name)
		if !ok {
			return "", false
		}
		return left + "." + right, true
	default:
		return "", false
	}
}

// parseUsing reads a using directive from its source text.
func parseUsing(text string) (UsingDirective, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))

	var u UsingDirective
	if rest, ok := cutWord(s, "global"); ok {
		u.Global = true
		s = rest
	}
	rest, ok := cutWord(s, "using")
	if !ok {
		return u, false
	}
	s = rest
	if rest, ok := cutWord(s, "static"); ok {
		u.Static = true
		s = rest
	}
	if rest, ok := cutWord(s, "unsafe"); ok {
		s = rest
	}
	if alias, target, found := strings.Cut(s, "="); found {
		u.Alias = strings.TrimSpace(alias)
		s = target
	}
	u.Target = closure.NormalizeName(s)
	return u, u.Target != ""
}

func cutWord(s, word string) (string, bool) {
	if !strings.HasPrefix(s, word) || len(s) == len(word) {
		return s, false
	}
	next := s[len(word)]
	if next != ' ' && next != '\t' && next != '\n' && next != '\r' {
		return s, false
	}
	return strings.TrimSpace(s[len(word):]), true
}
