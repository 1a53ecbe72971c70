package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/scopeql/internal/ast"
	"github.com/MrWong99/scopeql/internal/clothing"
	"github.com/MrWong99/scopeql/internal/condition"
	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/observe"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// resolver handles one family of AST nodes. The engine dispatches each node
// to the first resolver in the chain whose CanResolve returns true.
type resolver interface {
	CanResolve(n *ast.Node) bool
	Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error)
}

// state is the call-local resolution state: the path of in-progress
// (entity, field) and reference visits for cycle detection and diagnostics.
// It requires no synchronisation — one state per Resolve call.
type state struct {
	rctx       Context
	active     map[string]bool
	path       []string
	lastEntity string
}

func newState(rctx Context, maxDepth int) *state {
	return &state{
		rctx:   rctx,
		active: make(map[string]bool),
	}
}

// enter pushes a visit key onto the resolution path. Revisiting a key that
// is still in progress is a cycle.
func (st *state) enter(key string) error {
	if st.active[key] {
		return scoperr.New(scoperr.CodeCycle, "resolution revisited %s", key).
			WithPath(append(append([]string(nil), st.path...), key))
	}
	st.active[key] = true
	st.path = append(st.path, key)
	return nil
}

// leave pops the most recent visit key.
func (st *state) leave(key string) {
	delete(st.active, key)
	if len(st.path) > 0 && st.path[len(st.path)-1] == key {
		st.path = st.path[:len(st.path)-1]
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain resolver (clothing fields and slot access)
// ─────────────────────────────────────────────────────────────────────────────

// clothingResolver handles domain clothing fields (topmost_clothing, ...),
// slot-qualified access on them, and the [] suffix on slot access. It sits
// first in the chain so that domain semantics intercept field names before
// the generic step resolver sees them.
type clothingResolver struct {
	e *Engine
}

func (r *clothingResolver) CanResolve(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindStep:
		return clothing.IsField(n.Field) || isSlotStep(n)
	case ast.KindArrayIterate:
		return n.Parent != nil && isSlotStep(n.Parent)
	}
	return false
}

// isSlotStep reports whether n is a slot-access step: a non-domain field
// directly after a clothing field. The field need not be a valid slot name —
// invalid names go through the suggestion path.
func isSlotStep(n *ast.Node) bool {
	return n.Kind == ast.KindStep && !clothing.IsField(n.Field) &&
		n.Parent != nil && n.Parent.Kind == ast.KindStep && clothing.IsField(n.Parent.Field)
}

func (r *clothingResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	if n.Kind == ast.KindArrayIterate {
		// ...clothing.<slot>[] — every match in the slot, not just topmost.
		return r.resolveSlot(ctx, st, n.Parent, true)
	}
	if isSlotStep(n) {
		return r.resolveSlot(ctx, st, n, false)
	}
	return r.resolveField(ctx, st, n)
}

// resolveField resolves a domain clothing field per upstream wearer and
// unions the results.
func (r *clothingResolver) resolveField(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	wearers, err := r.e.resolve(ctx, st, n.Parent)
	if err != nil {
		return nil, err
	}

	out := NewSet()
	for wearer := range wearers {
		st.lastEntity = wearer
		key := wearer + "." + n.Field
		if err := st.enter(key); err != nil {
			return nil, err
		}
		snap, err := r.e.cache.GetOrFetch(ctx, wearer)
		if err != nil {
			st.leave(key)
			return nil, err
		}
		items, _ := snap.View(clothing.Field(n.Field))
		out.AddAll(items)
		st.leave(key)
	}
	return out, nil
}

// resolveSlot resolves slot-qualified clothing access: the single topmost
// item of the slot, or every item in the slot when allLayers is set.
// Unrecognised slot names get a similarity-based suggestion; without a close
// match (or with auto-map disabled) the access yields an empty set and a
// warning, never an error.
func (r *clothingResolver) resolveSlot(ctx context.Context, st *state, n *ast.Node, allLayers bool) (Set, error) {
	slot := clothing.SlotID(n.Field)
	if !slot.IsValid() {
		suggestion, ok := r.e.handler.SuggestSlot(n.Field)
		if !ok {
			observe.Logger(ctx).Warn("unknown slot name, no close match",
				"slot", n.Field)
			return NewSet(), nil
		}
		if !r.e.handler.AutoMap() {
			observe.Logger(ctx).Warn("unknown slot name",
				"slot", n.Field, "suggestion", suggestion)
			return NewSet(), nil
		}
		observe.Logger(ctx).Warn("unknown slot name, auto-mapped",
			"slot", n.Field, "suggestion", suggestion)
		slot = suggestion
	}

	wearers, err := r.e.resolve(ctx, st, n.Parent.Parent)
	if err != nil {
		return nil, err
	}

	out := NewSet()
	for wearer := range wearers {
		st.lastEntity = wearer
		key := wearer + "." + string(slot)
		if err := st.enter(key); err != nil {
			return nil, err
		}
		snap, err := r.e.cache.GetOrFetch(ctx, wearer)
		if err != nil {
			st.leave(key)
			return nil, err
		}
		if allLayers {
			out.AddAll(snap.AllInSlot(slot))
		} else if item, ok := snap.TopmostForSlot(slot); ok {
			out.Add(item)
		}
		st.leave(key)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic structural resolvers
// ─────────────────────────────────────────────────────────────────────────────

// rootResolver binds context roots to the entities named in the resolution
// context. An unbound root resolves to an empty set.
type rootResolver struct{}

func (r *rootResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindRoot }

func (r *rootResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	var id string
	switch n.Name {
	case "actor":
		id = st.rctx.ActorID
	case "target":
		id = st.rctx.TargetID
	default:
		return nil, scoperr.New(scoperr.CodeUnknownRoot, "unknown context root %q", n.Name)
	}
	if id == "" {
		return NewSet(), nil
	}
	return NewSet(id), nil
}

// stepResolver is the generic field step: a direct component lookup through
// the gateway. The component may reference entities via an "id" field or an
// "ids" list; a missing component contributes nothing.
type stepResolver struct {
	e *Engine
}

func (r *stepResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindStep }

func (r *stepResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	parents, err := r.e.resolve(ctx, st, n.Parent)
	if err != nil {
		return nil, err
	}

	out := NewSet()
	for entity := range parents {
		st.lastEntity = entity
		key := entity + "." + n.Field
		if err := st.enter(key); err != nil {
			return nil, err
		}
		data, err := r.e.gw.GetComponent(ctx, entity, n.Field)
		st.leave(key)
		if errors.Is(err, gateway.ErrComponentNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scope: component %q of %q: %w", n.Field, entity, err)
		}
		if id, ok := data["id"].(string); ok && id != "" {
			out.Add(id)
		}
		if list, ok := data["ids"].([]any); ok {
			for _, raw := range list {
				if id, ok := raw.(string); ok && id != "" {
					out.Add(id)
				}
			}
		}
	}
	return out, nil
}

// arrayResolver handles the [] suffix on non-slot chains. Results are
// already sets, so iterating all matches is a pass-through flatten.
type arrayResolver struct {
	e *Engine
}

func (r *arrayResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindArrayIterate }

func (r *arrayResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	return r.e.resolve(ctx, st, n.Parent)
}

// unionResolver resolves each child independently and merges the results —
// set union, not concatenation.
type unionResolver struct {
	e *Engine
}

func (r *unionResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindUnion }

func (r *unionResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	out := NewSet()
	for _, child := range n.Children {
		part, err := r.e.resolve(ctx, st, child)
		if err != nil {
			return nil, err
		}
		out.Merge(part)
	}
	return out, nil
}

// filterResolver narrows the parent set through the condition evaluator.
// A predicate failure for one candidate excludes that candidate only.
type filterResolver struct {
	e *Engine
}

func (r *filterResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindFilter }

func (r *filterResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	candidates, err := r.e.resolve(ctx, st, n.Parent)
	if err != nil {
		return nil, err
	}

	out := NewSet()
	for cand := range candidates {
		ok, err := r.e.eval.Evaluate(ctx, n.Predicate, condition.Bindings{
			Item:   cand,
			Actor:  st.rctx.ActorID,
			Target: st.rctx.TargetID,
		})
		if err != nil {
			r.e.metrics.PredicateFailures.Add(ctx, 1)
			observe.Logger(ctx).Warn("predicate evaluation failed, excluding candidate",
				"candidate", cand, "predicate", n.Predicate, "error", err)
			continue
		}
		if ok {
			out.Add(cand)
		}
	}
	return out, nil
}

// referenceResolver expands named sub-expressions. Reference chains are
// cycle-checked (a reference re-entered while still expanding is a cycle)
// and each expansion is held to the engine's depth limit.
type referenceResolver struct {
	e *Engine
}

func (r *referenceResolver) CanResolve(n *ast.Node) bool { return n.Kind == ast.KindReference }

func (r *referenceResolver) Resolve(ctx context.Context, st *state, n *ast.Node) (Set, error) {
	sub, ok := r.e.Reference(n.Name)
	if !ok {
		return nil, scoperr.New(scoperr.CodeUnknownReference,
			"reference %q is not registered", n.Name)
	}
	if d := sub.Depth(); d > r.e.maxDepth {
		return nil, scoperr.New(scoperr.CodeTooDeep,
			"reference %q expands to depth %d exceeding limit %d", n.Name, d, r.e.maxDepth)
	}

	key := "ref:" + n.Name
	if err := st.enter(key); err != nil {
		return nil, err
	}
	defer st.leave(key)
	return r.e.resolve(ctx, st, sub)
}
