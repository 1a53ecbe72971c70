// Package condition evaluates the bracketed filter predicates of scope
// expressions, e.g.
//
//	actor.all_clothing[is_in_layer(item, base) and not is_dirty(item)]
//
// The sublanguage is deliberately small: predicate calls combined with "and",
// "or", "not", and parentheses. Call arguments are identifiers or quoted
// strings; the identifiers "item", "actor", and "target" resolve to the
// current bindings, everything else passes through as a literal (layer and
// slot names read naturally unquoted).
//
// The engine talks to predicates through the [Evaluator] interface so a host
// can substitute its own boolean-logic engine; [Bridge] is the built-in
// implementation carrying the registered domain predicates.
package condition

import (
	"context"
	"strings"

	"github.com/MrWong99/scopeql/internal/scoperr"
)

// Bindings names the entities visible to a predicate evaluation.
type Bindings struct {
	// Item is the candidate entity currently being filtered.
	Item string

	// Actor is the acting context entity, when bound.
	Actor string

	// Target is the target context entity, when bound.
	Target string
}

// Evaluator evaluates a predicate against bindings. Implementations must
// treat evaluation as read-only and side-effect free.
type Evaluator interface {
	Evaluate(ctx context.Context, predicate string, b Bindings) (bool, error)
}

// PredicateFunc is a named predicate operator. Arguments arrive fully
// resolved (bindings substituted, literals unquoted).
type PredicateFunc func(ctx context.Context, args []string) (bool, error)

// ─────────────────────────────────────────────────────────────────────────────
// Predicate grammar
//
//	or    := and ('or' and)*
//	and   := unary ('and' unary)*
//	unary := 'not' unary | '(' or ')' | call
//	call  := ident '(' [arg (',' arg)*] ')'
//	arg   := ident | string
// ─────────────────────────────────────────────────────────────────────────────

type exprKind int

const (
	exprOr exprKind = iota
	exprAnd
	exprNot
	exprCall
)

type expr struct {
	kind     exprKind
	children []*expr  // Or/And operands, Not's single operand
	name     string   // Call predicate name
	args     []string // Call raw arguments (bindings unresolved)
}

// parsePredicate compiles predicate text into an expr tree. Errors carry
// [scoperr.CodePredicate]; a malformed predicate is localised to the
// candidate being filtered, never fatal to the whole resolution.
func parsePredicate(text string) (*expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &predParser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, predErr(text, "unexpected %q", p.toks[p.pos].text)
	}
	return e, nil
}

type token struct {
	text    string
	literal bool // quoted string
}

func tokenize(text string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')' || c == ',':
			toks = append(toks, token{text: string(c)})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(text[i+1:], c)
			if end < 0 {
				return nil, predErr(text, "unterminated string at position %d", i)
			}
			toks = append(toks, token{text: text[i+1 : i+1+end], literal: true})
			i += end + 2
		case isWordChar(c):
			start := i
			for i < len(text) && isWordChar(text[i]) {
				i++
			}
			toks = append(toks, token{text: text[start:i]})
		default:
			return nil, predErr(text, "unexpected character %q at position %d", c, i)
		}
	}
	return toks, nil
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type predParser struct {
	toks []token
	pos  int
}

func (p *predParser) parseOr() (*expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []*expr{left}
	for p.keyword("or") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &expr{kind: exprOr, children: children}, nil
}

func (p *predParser) parseAnd() (*expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []*expr{left}
	for p.keyword("and") {
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return left, nil
	}
	return &expr{kind: exprAnd, children: children}, nil
}

func (p *predParser) parseUnary() (*expr, error) {
	if p.keyword("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr{kind: exprNot, children: []*expr{inner}}, nil
	}
	if p.punct("(") {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.punct(")") {
			return nil, predErrTok(p, "expected ')'")
		}
		return inner, nil
	}
	return p.parseCall()
}

func (p *predParser) parseCall() (*expr, error) {
	if p.pos >= len(p.toks) {
		return nil, predErrTok(p, "expected predicate call")
	}
	name := p.toks[p.pos]
	if name.literal || !isWordChar(name.text[0]) {
		return nil, predErrTok(p, "expected predicate name, found %q", name.text)
	}
	p.pos++
	if !p.punct("(") {
		return nil, predErrTok(p, "expected '(' after predicate %q", name.text)
	}

	call := &expr{kind: exprCall, name: name.text}
	if p.punct(")") {
		return call, nil
	}
	for {
		if p.pos >= len(p.toks) {
			return nil, predErrTok(p, "unterminated argument list of %q", name.text)
		}
		call.args = append(call.args, p.toks[p.pos].text)
		p.pos++
		if p.punct(")") {
			return call, nil
		}
		if !p.punct(",") {
			return nil, predErrTok(p, "expected ',' or ')' in arguments of %q", name.text)
		}
	}
}

// keyword consumes an unquoted identifier token equal to word.
func (p *predParser) keyword(word string) bool {
	if p.pos < len(p.toks) && !p.toks[p.pos].literal && p.toks[p.pos].text == word {
		p.pos++
		return true
	}
	return false
}

// punct consumes a punctuation token equal to s.
func (p *predParser) punct(s string) bool {
	if p.pos < len(p.toks) && p.toks[p.pos].text == s {
		p.pos++
		return true
	}
	return false
}

func predErr(predicate, format string, args ...any) error {
	return scoperr.New(scoperr.CodePredicate, format, args...).
		WithDetail("predicate: %q", predicate)
}

func predErrTok(p *predParser, format string, args ...any) error {
	e := scoperr.New(scoperr.CodePredicate, format, args...)
	return e.WithDetail("token position: %d", p.pos)
}

// eval walks the tree. "and"/"or" short-circuit, so a failing predicate in a
// branch that is never reached does not fail the candidate.
func (e *expr) eval(ctx context.Context, preds map[string]PredicateFunc, b Bindings) (bool, error) {
	switch e.kind {
	case exprOr:
		for _, c := range e.children {
			ok, err := c.eval(ctx, preds, b)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case exprAnd:
		for _, c := range e.children {
			ok, err := c.eval(ctx, preds, b)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case exprNot:
		ok, err := e.children[0].eval(ctx, preds, b)
		return !ok, err
	case exprCall:
		fn, ok := preds[e.name]
		if !ok {
			return false, scoperr.New(scoperr.CodePredicate, "unknown predicate %q", e.name)
		}
		args := make([]string, len(e.args))
		for i, a := range e.args {
			args[i] = resolveArg(a, b)
		}
		return fn(ctx, args)
	default:
		return false, scoperr.New(scoperr.CodePredicate, "invalid predicate node")
	}
}

// resolveArg substitutes bindings; anything else is a literal.
func resolveArg(arg string, b Bindings) string {
	switch arg {
	case "item":
		return b.Item
	case "actor":
		return b.Actor
	case "target":
		return b.Target
	}
	return arg
}
