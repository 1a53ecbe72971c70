package ast_test

import (
	"testing"

	"github.com/MrWong99/scopeql/internal/ast"
)

func chain(root string, fields ...string) *ast.Node {
	n := &ast.Node{Kind: ast.KindRoot, Name: root}
	for _, f := range fields {
		n = &ast.Node{Kind: ast.KindStep, Field: f, Parent: n}
	}
	return n
}

func TestKindString(t *testing.T) {
	t.Parallel()

	cases := map[ast.Kind]string{
		ast.KindRoot:         "root",
		ast.KindStep:         "step",
		ast.KindArrayIterate: "array_iterate",
		ast.KindFilter:       "filter",
		ast.KindUnion:        "union",
		ast.KindReference:    "reference",
		ast.Kind(42):         "kind(42)",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), got, want)
		}
	}
}

func TestDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node *ast.Node
		want int
	}{
		{"nil", nil, 0},
		{"bare root", chain("actor"), 1},
		{"two steps", chain("actor", "topmost_clothing", "torso_upper"), 3},
		{
			"iterate adds one",
			&ast.Node{Kind: ast.KindArrayIterate, Parent: chain("actor", "all_clothing")},
			3,
		},
		{
			"union takes the deeper branch",
			&ast.Node{Kind: ast.KindUnion, Children: []*ast.Node{
				chain("actor"),
				chain("target", "topmost_clothing", "legs"),
			}},
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.node.Depth(); got != tt.want {
				t.Fatalf("Depth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStringRendersExpressionSyntax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node *ast.Node
		want string
	}{
		{"root", chain("actor"), "actor"},
		{"steps", chain("actor", "topmost_clothing", "torso_upper"), "actor.topmost_clothing.torso_upper"},
		{
			"iterate",
			&ast.Node{Kind: ast.KindArrayIterate, Parent: chain("actor", "all_clothing")},
			"actor.all_clothing[]",
		},
		{
			"filter",
			&ast.Node{Kind: ast.KindFilter, Predicate: "is_dirty(item)", Parent: chain("actor", "all_clothing")},
			"actor.all_clothing[is_dirty(item)]",
		},
		{
			"union",
			&ast.Node{Kind: ast.KindUnion, Children: []*ast.Node{
				chain("actor", "visible_clothing"),
				{Kind: ast.KindReference, Name: "bystander_clothes"},
			}},
			"actor.visible_clothing + bystander_clothes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.node.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := chain("actor", "topmost_clothing")
	b := chain("actor", "topmost_clothing")
	c := chain("actor", "outer_clothing")

	if !a.Equal(b) {
		t.Error("identical chains must be Equal")
	}
	if a.Equal(c) {
		t.Error("different fields must not be Equal")
	}
	if a.Equal(nil) || (*ast.Node)(nil).Equal(a) {
		t.Error("nil compares equal only to nil")
	}
	if !(*ast.Node)(nil).Equal(nil) {
		t.Error("nil must equal nil")
	}
}
