package parser_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/scopeql/internal/ast"
	"github.com/MrWong99/scopeql/internal/parser"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

func TestParseChains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want *ast.Node
	}{
		{
			name: "bare root",
			text: "actor",
			want: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
		},
		{
			name: "single field",
			text: "actor.worn_clothing",
			want: &ast.Node{
				Kind: ast.KindStep, Field: "worn_clothing",
				Parent: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
			},
		},
		{
			name: "slot qualified field",
			text: "target.topmost_clothing.torso_upper",
			want: &ast.Node{
				Kind: ast.KindStep, Field: "torso_upper",
				Parent: &ast.Node{
					Kind: ast.KindStep, Field: "topmost_clothing",
					Parent: &ast.Node{Kind: ast.KindRoot, Name: "target"},
				},
			},
		},
		{
			name: "array iterate suffix",
			text: "actor.topmost_clothing.legs[]",
			want: &ast.Node{
				Kind: ast.KindArrayIterate,
				Parent: &ast.Node{
					Kind: ast.KindStep, Field: "legs",
					Parent: &ast.Node{
						Kind: ast.KindStep, Field: "topmost_clothing",
						Parent: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
					},
				},
			},
		},
		{
			name: "filter predicate captured verbatim",
			text: "actor.worn_clothing[is_dirty(item)]",
			want: &ast.Node{
				Kind: ast.KindFilter, Predicate: "is_dirty(item)",
				Parent: &ast.Node{
					Kind: ast.KindStep, Field: "worn_clothing",
					Parent: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
				},
			},
		},
		{
			name: "filter predicate trims surrounding space",
			text: "actor.worn_clothing[ is_dirty(item) ]",
			want: &ast.Node{
				Kind: ast.KindFilter, Predicate: "is_dirty(item)",
				Parent: &ast.Node{
					Kind: ast.KindStep, Field: "worn_clothing",
					Parent: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
				},
			},
		},
		{
			name: "union of two chains",
			text: "actor.worn_clothing + target.worn_clothing",
			want: &ast.Node{
				Kind: ast.KindUnion,
				Children: []*ast.Node{
					{
						Kind: ast.KindStep, Field: "worn_clothing",
						Parent: &ast.Node{Kind: ast.KindRoot, Name: "actor"},
					},
					{
						Kind: ast.KindStep, Field: "worn_clothing",
						Parent: &ast.Node{Kind: ast.KindRoot, Name: "target"},
					},
				},
			},
		},
		{
			name: "reference root",
			text: "all_formal.torso_upper",
			want: &ast.Node{
				Kind: ast.KindStep, Field: "torso_upper",
				Parent: &ast.Node{Kind: ast.KindReference, Name: "all_formal"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parser.Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): unexpected error: %v", tt.text, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Parse(%q):\n got %s\nwant %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		code scoperr.Code
	}{
		{name: "empty input", text: "", code: scoperr.CodeSyntax},
		{name: "leading dot", text: ".worn_clothing", code: scoperr.CodeSyntax},
		{name: "trailing dot", text: "actor.", code: scoperr.CodeSyntax},
		{name: "double dot", text: "actor..worn_clothing", code: scoperr.CodeSyntax},
		{name: "unclosed bracket", text: "actor.worn_clothing[is_dirty(item)", code: scoperr.CodeSyntax},
		{name: "dangling union", text: "actor.worn_clothing +", code: scoperr.CodeSyntax},
		{name: "trailing garbage", text: "actor.worn_clothing)", code: scoperr.CodeSyntax},
		{name: "digit root", text: "1st.worn_clothing", code: scoperr.CodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parser.Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got none", tt.text)
			}
			var serr *scoperr.Error
			if !errors.As(err, &serr) {
				t.Fatalf("Parse(%q): expected *scoperr.Error, got %T", tt.text, err)
			}
			if serr.Code != tt.code {
				t.Fatalf("Parse(%q): expected code %s, got %s", tt.text, tt.code, serr.Code)
			}
		})
	}
}

func TestParseKnownReferences(t *testing.T) {
	t.Parallel()

	t.Run("listed reference parses", func(t *testing.T) {
		t.Parallel()
		got, err := parser.Parse("all_formal", parser.WithKnownReferences("all_formal"))
		if err != nil {
			t.Fatalf("Parse: unexpected error: %v", err)
		}
		if got.Kind != ast.KindReference || got.Name != "all_formal" {
			t.Fatalf("Parse: expected reference all_formal, got %s %q", got.Kind, got.Name)
		}
	})

	t.Run("unlisted reference fails with unknown root", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("no_such_ref", parser.WithKnownReferences("all_formal"))
		if !errors.Is(err, scoperr.ErrUnknownRoot) {
			t.Fatalf("Parse: expected ErrUnknownRoot, got %v", err)
		}
	})

	t.Run("context roots always parse", func(t *testing.T) {
		t.Parallel()
		got, err := parser.Parse("actor", parser.WithKnownReferences())
		if err != nil {
			t.Fatalf("Parse: unexpected error: %v", err)
		}
		if got.Kind != ast.KindRoot {
			t.Fatalf("Parse: expected root node, got %s", got.Kind)
		}
	})
}

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	exprs := []string{
		"actor",
		"actor.worn_clothing",
		"target.topmost_clothing.torso_upper",
		"actor.topmost_clothing.legs[]",
		"actor.worn_clothing[is_dirty(item)]",
		"actor.worn_clothing + target.worn_clothing",
	}

	for _, expr := range exprs {
		node, err := parser.Parse(expr)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", expr, err)
		}
		again, err := parser.Parse(node.String())
		if err != nil {
			t.Fatalf("Parse(%q) of rendered tree: unexpected error: %v", node.String(), err)
		}
		if !node.Equal(again) {
			t.Fatalf("round trip of %q changed the tree: %s", expr, again)
		}
	}
}
