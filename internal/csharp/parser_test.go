//go:build cgo

package csharp

import (
	"context"
	"testing"
)

func parse(t *testing.T, source string) *FileFacts {
	t.Helper()
	facts, err := NewParser().Parse(context.Background(), "/src/File.cs", []byte(source))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return facts
}

func findDecl(facts *FileFacts, fullName string) *Declaration {
	for _, d := range facts.Declarations {
		if d.FullName() == fullName {
			return d
		}
	}
	return nil
}

func refNames(d *Declaration) map[string]bool {
	out := make(map[string]bool, len(d.Refs))
	for _, r := range d.Refs {
		out[r.Name] = true
	}
	return out
}

func TestParse_BlockNamespaces(t *testing.T) {
	facts := parse(t, `
using System;
using Acme.Core;
using Abs = Acme.Core.Abstractions;

namespace Acme.App
{
    using Acme.Extra;

    [Serializable]
    public partial class Target<TKey> : Abs.Base, IComparable<Target<TKey>> where TKey : IKey
    {
        private readonly Helper _helper = new Helper();

        public Money Total { get; set; }

        public Result<Order> Compute(Invoice invoice)
        {
            var local = Factory.Create<Widget>();
            return Acme.Core.Calculator.Run(invoice);
        }

        private class Nested { }
    }

    namespace Inner
    {
        enum Color { Red, Green }
    }
}
`)

	if len(facts.Usings) != 3 {
		t.Errorf("file usings = %+v, want 3", facts.Usings)
	}

	target := findDecl(facts, "Acme.App.Target`1")
	if target == nil {
		t.Fatalf("Target`1 not found in %+v", facts.Declarations)
	}
	if !target.Partial || target.Kind != "class" || target.Arity != 1 {
		t.Errorf("Target = %+v", target)
	}
	if len(target.Nested) != 1 || target.Nested[0] != "Nested" {
		t.Errorf("Nested = %v", target.Nested)
	}
	if len(target.Usings) < 3 {
		t.Errorf("Usings in scope = %d, want at least the file usings", len(target.Usings))
	}

	names := refNames(target)
	for _, want := range []string{
		"Abs.Base", "IComparable`1", "Target`1", "IKey", "Serializable",
		"Helper", "Money", "Result`1", "Order", "Invoice", "Widget", "Acme.Core.Calculator.Run",
	} {
		if !names[want] {
			t.Errorf("refs missing %q; got %v", want, names)
		}
	}
	for _, unwanted := range []string{"Compute", "invoice", "_helper", "Total", "Target"} {
		if names[unwanted] {
			t.Errorf("refs contain declaration name %q", unwanted)
		}
	}

	kinds := make(map[string]RefKind)
	for _, r := range target.Refs {
		if _, ok := kinds[r.Name]; !ok {
			kinds[r.Name] = r.Kind
		}
	}
	if kinds["Abs.Base"] != RefBase {
		t.Errorf("Abs.Base kind = %v, want base", kinds["Abs.Base"])
	}
	if kinds["Serializable"] != RefAttribute {
		t.Errorf("Serializable kind = %v, want attribute", kinds["Serializable"])
	}
	if kinds["IKey"] != RefConstraint {
		t.Errorf("IKey kind = %v, want constraint", kinds["IKey"])
	}

	if findDecl(facts, "Acme.App.Inner.Color") == nil {
		t.Error("enum in nested namespace block not found")
	}
}

func TestParse_FileScopedNamespace(t *testing.T) {
	facts := parse(t, `
namespace Acme.Orders;

public record OrderPlaced(Guid Id, Customer Customer);

public interface IOrderStore
{
    Order Find(int id);
}

public delegate void OrderHandler(OrderPlaced evt);
`)

	for _, want := range []string{"Acme.Orders.OrderPlaced", "Acme.Orders.IOrderStore", "Acme.Orders.OrderHandler"} {
		if findDecl(facts, want) == nil {
			t.Errorf("declaration %s not found in %+v", want, facts.Declarations)
		}
	}

	if d := findDecl(facts, "Acme.Orders.OrderPlaced"); d != nil && !refNames(d)["Customer"] {
		t.Errorf("record refs = %v, want Customer", refNames(d))
	}
	if d := findDecl(facts, "Acme.Orders.OrderHandler"); d != nil && !refNames(d)["OrderPlaced"] {
		t.Errorf("delegate refs = %v, want OrderPlaced", refNames(d))
	}
}

func TestParse_GlobalNamespaceAndErrors(t *testing.T) {
	facts := parse(t, `
class Program
{
    static void Main() { Runner.Go( }
}
`)
	if findDecl(facts, "Program") == nil {
		t.Errorf("global namespace class not found in %+v", facts.Declarations)
	}
	if !facts.HasErrors {
		t.Error("HasErrors = false for a file with a syntax error")
	}
}

func TestParseUsing(t *testing.T) {
	tests := []struct {
		text string
		want UsingDirective
		ok   bool
	}{
		{"using System.Text;", UsingDirective{Target: "System.Text"}, true},
		{"global using Acme.Core;", UsingDirective{Global: true, Target: "Acme.Core"}, true},
		{"using static Acme.Core.Helper;", UsingDirective{Static: true, Target: "Acme.Core.Helper"}, true},
		{"using Map = System.Collections.Generic.Dictionary<string, int>;", UsingDirective{Alias: "Map", Target: "System.Collections.Generic.Dictionary`2"}, true},
		{"global using static System.Math;", UsingDirective{Global: true, Static: true, Target: "System.Math"}, true},
		{"usingSystem;", UsingDirective{}, false},
	}
	for _, tt := range tests {
		got, ok := parseUsing(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseUsing(%q) = %+v, %v; want %+v, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParse_ShadowedNames(t *testing.T) {
	facts := parse(t, `
namespace Acme;

public class User
{
    private string Name;
    public Color Color { get; }

    public int Len() => Name.Length;

    public void M(Other Target, Func<Item, bool> filter)
    {
        Target.Go();
        foreach (var entry in Entries) { entry.Touch(); }
        try { Run(x => x.Done); } catch (Failure error) { error.Log(); }
        if (Color == Color.Red && filter is Predicate p) { p.Invoke(); }
        List<Name> names = new List<Name>();
    }
}
`)
	user := findDecl(facts, "Acme.User")
	if user == nil {
		t.Fatalf("User not found in %+v", facts.Declarations)
	}
	names := refNames(user)

	for _, want := range []string{"Other", "Func`2", "Item", "Failure", "Predicate", "Color", "Color.Red", "List`1", "Name"} {
		if !names[want] {
			t.Errorf("refs missing %q; got %v", want, names)
		}
	}
	for _, unwanted := range []string{"Target", "Target.Go", "Name.Length", "entry", "entry.Touch", "x", "x.Done", "error.Log", "p.Invoke", "filter"} {
		if names[unwanted] {
			t.Errorf("refs contain value name %q", unwanted)
		}
	}
}
