// Package parser turns scope expression text into an [ast.Node] tree.
//
// The surface syntax is a dot-notation chain rooted at a context entity:
//
//	expr   := chain ('+' chain)*
//	chain  := root ('.' field)* ('[' predicate? ']')?
//	root   := identifier  ("actor", "target", or a named reference)
//	field  := identifier
//
// A trailing empty bracket pair ("[]") means "iterate all matches"; a
// non-empty bracket pair captures a filter predicate verbatim for later
// evaluation by the condition bridge — the parser never evaluates predicates.
// '+' joins chains into a union.
//
// Parsing is a pure function of the input text: the same text always yields a
// structurally identical tree, so callers may cache trees by expression text.
package parser

import (
	"slices"
	"strings"

	"github.com/MrWong99/scopeql/internal/ast"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// ContextRoots are the root tokens bound to context entities by the engine.
var ContextRoots = []string{"actor", "target"}

// Option configures a [Parse] call.
type Option func(*parser)

// WithKnownReferences restricts reference roots to the given names. Without
// this option any identifier root that is not a context root parses to a
// Reference node and existence is checked at resolve time; with it, an
// unlisted root fails immediately with an unknown-root error.
func WithKnownReferences(names ...string) Option {
	return func(p *parser) {
		p.knownRefs = names
		p.checkRefs = true
	}
}

// Parse parses a scope expression. On failure it returns a [*scoperr.Error]
// with code [scoperr.CodeSyntax] or [scoperr.CodeUnknownRoot]; parse errors
// are always fatal and never recovered.
func Parse(text string, opts ...Option) (*ast.Node, error) {
	p := &parser{input: text}
	for _, o := range opts {
		o(p)
	}

	node, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return nil, p.syntaxErr("unexpected %q", rest(p.input, p.pos))
	}
	return node, nil
}

type parser struct {
	input     string
	pos       int
	knownRefs []string
	checkRefs bool
}

// parseUnion parses one or more '+'-joined chains. A single chain is returned
// as-is; two or more become a Union node.
func (p *parser) parseUnion() (*ast.Node, error) {
	first, err := p.parseChain()
	if err != nil {
		return nil, err
	}

	children := []*ast.Node{first}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != '+' {
			break
		}
		p.pos++ // consume '+'
		next, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}

	if len(children) == 1 {
		return first, nil
	}
	return &ast.Node{Kind: ast.KindUnion, Children: children}, nil
}

// parseChain parses root ('.' field)* with an optional bracket suffix.
func (p *parser) parseChain() (*ast.Node, error) {
	p.skipSpaces()
	rootTok, err := p.readIdentifier("expression root")
	if err != nil {
		return nil, err
	}

	node := p.rootNode(rootTok)
	if node == nil {
		return nil, scoperr.New(scoperr.CodeUnknownRoot,
			"unknown expression root %q", rootTok).
			WithDetail("known roots: %s", strings.Join(append(slices.Clone(ContextRoots), p.knownRefs...), ", "))
	}

	for p.pos < len(p.input) && p.input[p.pos] == '.' {
		p.pos++ // consume '.'
		field, err := p.readIdentifier("field name")
		if err != nil {
			return nil, err
		}
		node = &ast.Node{Kind: ast.KindStep, Field: field, Parent: node}
	}

	if p.pos < len(p.input) && p.input[p.pos] == '[' {
		return p.parseBracketSuffix(node)
	}
	return node, nil
}

// rootNode maps a root token to a Root or Reference node, or nil when
// reference checking is enabled and the token is unknown.
func (p *parser) rootNode(tok string) *ast.Node {
	if slices.Contains(ContextRoots, tok) {
		return &ast.Node{Kind: ast.KindRoot, Name: tok}
	}
	if p.checkRefs && !slices.Contains(p.knownRefs, tok) {
		return nil
	}
	return &ast.Node{Kind: ast.KindReference, Name: tok}
}

// parseBracketSuffix consumes "[...]": empty brackets yield an ArrayIterate
// node, anything else is captured verbatim as a Filter predicate.
func (p *parser) parseBracketSuffix(parent *ast.Node) (*ast.Node, error) {
	open := p.pos
	p.pos++ // consume '['
	depth := 1
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				inner := strings.TrimSpace(p.input[open+1 : p.pos])
				p.pos++ // consume ']'
				if inner == "" {
					return &ast.Node{Kind: ast.KindArrayIterate, Parent: parent}, nil
				}
				return &ast.Node{Kind: ast.KindFilter, Predicate: inner, Parent: parent}, nil
			}
		}
		p.pos++
	}
	return nil, p.syntaxErr("unclosed bracket opened at position %d", open)
}

// readIdentifier consumes [A-Za-z_][A-Za-z0-9_]* at the current position.
func (p *parser) readIdentifier(what string) (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentChar(p.input[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		if start >= len(p.input) {
			return "", p.syntaxErr("expected %s at end of expression", what)
		}
		return "", p.syntaxErr("expected %s, found %q", what, rest(p.input, start))
	}
	return p.input[start:p.pos], nil
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) syntaxErr(format string, args ...any) error {
	return scoperr.New(scoperr.CodeSyntax, format, args...).
		WithDetail("expression: %q, position: %d", p.input, p.pos)
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// rest returns a short excerpt of s starting at pos for error messages.
func rest(s string, pos int) string {
	const max = 12
	if pos >= len(s) {
		return ""
	}
	if pos+max < len(s) {
		return s[pos:pos+max] + "…"
	}
	return s[pos:]
}
