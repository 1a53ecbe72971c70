// Package ast defines the typed node tree produced by the scope expression
// parser. Nodes form a closed tagged union over [Kind] so that the resolver
// dispatcher can switch exhaustively and the compiler flags any new node kind
// that lacks a handler.
//
// Nodes are immutable once built. A parsed tree is owned by the resolution
// call that created it; re-parse for each new expression string (the parser is
// deterministic, so callers may cache trees by expression text if they wish).
package ast

import (
	"fmt"
	"strings"
)

// Kind discriminates the node union.
type Kind int

const (
	// KindRoot anchors an expression at a context entity (actor, target).
	KindRoot Kind = iota

	// KindStep is a dot-notation field access on the parent's result set.
	KindStep

	// KindArrayIterate is the trailing [] suffix: "return every match"
	// instead of only the topmost/first match.
	KindArrayIterate

	// KindFilter narrows the parent's result set with a boolean predicate
	// evaluated per candidate entity.
	KindFilter

	// KindUnion merges the result sets of two or more child expressions.
	KindUnion

	// KindReference names a sub-expression registered ahead of time.
	KindReference
)

// String returns the lowercase kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindStep:
		return "step"
	case KindArrayIterate:
		return "array_iterate"
	case KindFilter:
		return "filter"
	case KindUnion:
		return "union"
	case KindReference:
		return "reference"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is one node of a parsed scope expression.
//
// The populated fields depend on Kind:
//
//	Root:         Name (context root, e.g. "actor")
//	Step:         Field, Parent
//	ArrayIterate: Parent
//	Filter:       Predicate (captured text, not evaluated at parse time), Parent
//	Union:        Children (two or more)
//	Reference:    Name
type Node struct {
	Kind      Kind
	Name      string
	Field     string
	Predicate string
	Parent    *Node
	Children  []*Node
}

// Depth returns the length of the longest Parent/Children chain rooted at n,
// counting n itself. Used to enforce the engine's depth limit.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	d := n.Parent.Depth()
	for _, c := range n.Children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// String renders the node back to expression syntax. The output of a parsed
// tree round-trips to an equivalent expression, which keeps diagnostics
// readable without hanging on to the original source text.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindRoot, KindReference:
		return n.Name
	case KindStep:
		return n.Parent.String() + "." + n.Field
	case KindArrayIterate:
		return n.Parent.String() + "[]"
	case KindFilter:
		return n.Parent.String() + "[" + n.Predicate + "]"
	case KindUnion:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = c.String()
		}
		return strings.Join(parts, " + ")
	default:
		return "<invalid>"
	}
}

// Equal reports structural equality of two trees. Parsing the same text twice
// yields Equal trees; the parser tests rely on this.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Name != other.Name ||
		n.Field != other.Field || n.Predicate != other.Predicate {
		return false
	}
	if !n.Parent.Equal(other.Parent) {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
