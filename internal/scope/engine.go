// Package scope is the resolution core of scopeql: it walks a parsed scope
// expression through an ordered chain of node resolvers and returns the set
// of entity IDs the expression denotes.
//
// The engine is a synchronous request/response component — one Resolve call
// runs to completion before returning, with no background work. The only
// cross-call shared state is the snapshot cache, which synchronises itself;
// everything else (cycle tracking, resolution path) is call-local.
//
// Error policy: parse, cycle, and depth errors propagate to the caller as
// typed [*scoperr.Error] values. Everything else is offered to the recovery
// subsystem; if recovery succeeds the resolution is retried once against the
// repaired data, otherwise the call yields an empty set — a missing clothing
// item must never crash the action system.
package scope

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrWong99/scopeql/internal/ast"
	"github.com/MrWong99/scopeql/internal/clothing"
	"github.com/MrWong99/scopeql/internal/condition"
	"github.com/MrWong99/scopeql/internal/equipcache"
	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/observe"
	"github.com/MrWong99/scopeql/internal/parser"
	"github.com/MrWong99/scopeql/internal/repair"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// DefaultMaxDepth bounds the AST depth of a resolvable expression.
const DefaultMaxDepth = 8

// Context names the entities an expression's roots are bound to for one
// resolution call. An empty ID resolves the corresponding root to an empty
// set rather than failing.
type Context struct {
	ActorID  string
	TargetID string
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithMaxDepth overrides [DefaultMaxDepth].
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithCacheOptions configures the engine-owned snapshot cache (size bound,
// TTL, clock).
func WithCacheOptions(opts ...equipcache.Option) Option {
	return func(e *Engine) {
		e.cacheOpts = opts
	}
}

// WithEvaluator replaces the built-in condition bridge with a host-supplied
// predicate evaluator.
func WithEvaluator(eval condition.Evaluator) Option {
	return func(e *Engine) {
		e.eval = eval
	}
}

// WithRecovery replaces the default recovery handler. The handler must share
// the engine's gateway; prefer [WithRepairOptions] unless a custom handler
// type is needed.
func WithRecovery(h *repair.Handler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// WithRepairOptions tunes the engine-built recovery handler (similarity
// threshold, auto-mapping). Ignored when [WithRecovery] is also given.
func WithRepairOptions(opts ...repair.Option) Option {
	return func(e *Engine) {
		e.repairOpts = opts
	}
}

// WithMetrics replaces the default metrics instance. Tests inject a [Metrics]
// built from an isolated meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine resolves scope expressions against an entity data gateway.
// Construct with [New]; safe for concurrent use when embedded in a
// multi-threaded host.
type Engine struct {
	gw       gateway.Gateway
	cache    *equipcache.Cache
	eval     condition.Evaluator
	handler  *repair.Handler
	metrics  *observe.Metrics
	maxDepth int

	cacheOpts  []equipcache.Option
	repairOpts []repair.Option

	refMu sync.RWMutex
	refs  map[string]*ast.Node

	chain []resolver
}

// New creates an [Engine] over gw. Unless overridden by options, the engine
// owns its snapshot cache, uses the built-in condition bridge, and repairs
// data through a default recovery handler.
func New(gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		gw:       gw,
		maxDepth: DefaultMaxDepth,
		refs:     make(map[string]*ast.Node),
	}
	for _, o := range opts {
		o(e)
	}

	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}

	cacheOpts := e.cacheOpts
	cacheOpts = append(cacheOpts, equipcache.WithObserver(func(hit bool) {
		if hit {
			e.metrics.CacheHits.Add(context.Background(), 1)
		} else {
			e.metrics.CacheMisses.Add(context.Background(), 1)
		}
	}))
	e.cache = equipcache.New(func(ctx context.Context, entityID string) (*clothing.Snapshot, error) {
		return clothing.Fetch(ctx, gw, entityID)
	}, cacheOpts...)

	if e.eval == nil {
		e.eval = condition.NewBridge(gw, e.cache)
	}
	if e.handler == nil {
		e.handler = repair.NewHandler(gw, e.cache, e.repairOpts...)
	}

	// Dispatch order is fixed: domain resolvers run before the generic
	// structural ones so clothing semantics intercept otherwise-generic
	// field names.
	e.chain = []resolver{
		&clothingResolver{e},
		&rootResolver{},
		&stepResolver{e},
		&arrayResolver{e},
		&unionResolver{e},
		&filterResolver{e},
		&referenceResolver{e},
	}
	return e
}

// ResolveExpression parses text and resolves it in one call. Reference roots
// are validated against the registered reference names at parse time.
func (e *Engine) ResolveExpression(ctx context.Context, text string, rctx Context) (Set, error) {
	node, err := parser.Parse(text, parser.WithKnownReferences(e.referenceNames()...))
	if err != nil {
		return nil, err
	}
	return e.Resolve(ctx, node, rctx)
}

// Resolve walks node and returns the set of entity IDs it denotes, applying
// the engine's error policy. The returned set may be empty but is never nil
// on success.
func (e *Engine) Resolve(ctx context.Context, node *ast.Node, rctx Context) (Set, error) {
	ctx, span := observe.StartSpan(ctx, "scopeql.resolve")
	defer span.End()
	start := time.Now()

	set, err := e.resolveOnce(ctx, node, rctx, true)
	root := rootName(node)
	switch {
	case err != nil:
		e.metrics.RecordResolution(ctx, root, "error", time.Since(start))
	case set.Len() == 0:
		e.metrics.RecordResolution(ctx, root, "empty", time.Since(start))
	default:
		e.metrics.RecordResolution(ctx, root, "ok", time.Since(start))
	}
	return set, err
}

// resolveOnce runs a full resolution pass. On a recoverable error it consults
// the recovery handler and, when the repair succeeded, retries exactly once
// against the repaired data.
func (e *Engine) resolveOnce(ctx context.Context, node *ast.Node, rctx Context, mayRetry bool) (Set, error) {
	if d := node.Depth(); d > e.maxDepth {
		err := scoperr.New(scoperr.CodeTooDeep,
			"expression depth %d exceeds limit %d", d, e.maxDepth).
			WithDetail("expression: %s", node)
		e.metrics.RecordResolutionError(ctx, string(scoperr.CodeTooDeep))
		return nil, err
	}

	st := newState(rctx, e.maxDepth)
	set, err := e.resolve(ctx, st, node)
	if err == nil {
		return set, nil
	}

	var serr *scoperr.Error
	if errors.As(err, &serr) && serr.Fatal() {
		e.metrics.RecordResolutionError(ctx, string(serr.Code))
		if len(serr.Diagnostic.Path) == 0 {
			serr = serr.WithPath(st.path)
		}
		return nil, serr
	}

	outcome := e.handler.Handle(ctx, err, st.lastEntity)
	code := "unclassified"
	if serr != nil {
		code = string(serr.Code)
	}
	e.metrics.RecordRepair(ctx, code, outcome.Recovered)

	if outcome.Recovered && mayRetry {
		return e.resolveOnce(ctx, node, rctx, false)
	}

	observe.Logger(ctx).Warn("scope resolution yielded no result",
		"expression", node.String(),
		"code", code,
		"user_message", outcome.UserMessage,
	)
	return NewSet(), nil
}

// resolve dispatches one node to the first capable resolver in the chain.
func (e *Engine) resolve(ctx context.Context, st *state, node *ast.Node) (Set, error) {
	for _, r := range e.chain {
		if r.CanResolve(node) {
			return r.Resolve(ctx, st, node)
		}
	}
	// Unreachable while the chain covers every ast.Kind; kept as a guard
	// for new node kinds.
	return nil, scoperr.New(scoperr.CodeSyntax, "no resolver for node kind %s", node.Kind)
}

// RegisterReference registers a named sub-expression for use as an
// expression root. Re-registering a name replaces it.
func (e *Engine) RegisterReference(name string, node *ast.Node) {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	e.refs[name] = node
}

// RegisterReferenceExpression parses text and registers it under name.
func (e *Engine) RegisterReferenceExpression(name, text string) error {
	node, err := parser.Parse(text)
	if err != nil {
		return err
	}
	e.RegisterReference(name, node)
	return nil
}

// UnregisterReference removes a registered sub-expression. Removing an
// unknown name is a no-op.
func (e *Engine) UnregisterReference(name string) {
	e.refMu.Lock()
	defer e.refMu.Unlock()
	delete(e.refs, name)
}

// Reference returns a registered sub-expression.
func (e *Engine) Reference(name string) (*ast.Node, bool) {
	e.refMu.RLock()
	defer e.refMu.RUnlock()
	node, ok := e.refs[name]
	return node, ok
}

func (e *Engine) referenceNames() []string {
	e.refMu.RLock()
	defer e.refMu.RUnlock()
	names := make([]string, 0, len(e.refs))
	for name := range e.refs {
		names = append(names, name)
	}
	return names
}

// InvalidateEntity drops the entity's cached snapshot. Hosts call this
// whenever an entity's equipment is known to have changed — the engine does
// not auto-detect external mutation.
func (e *Engine) InvalidateEntity(entityID string) {
	e.cache.Invalidate(entityID)
}

// ClearCache drops every cached snapshot.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// CacheStats reports snapshot cache counters.
func (e *Engine) CacheStats() equipcache.Stats {
	return e.cache.Stats()
}

// RetuneRepair re-applies repair options to the engine's recovery handler,
// for hosts that hot-reload repair tuning.
func (e *Engine) RetuneRepair(opts ...repair.Option) {
	e.handler.Retune(opts...)
}

// UserMessage maps a resolution error to its fixed user-facing message.
func (e *Engine) UserMessage(err error) string {
	return e.handler.UserMessage(err)
}

// rootName extracts the leftmost root/reference name for metric attributes.
func rootName(node *ast.Node) string {
	for node != nil {
		switch node.Kind {
		case ast.KindRoot, ast.KindReference:
			return node.Name
		case ast.KindUnion:
			if len(node.Children) > 0 {
				node = node.Children[0]
				continue
			}
			return "union"
		default:
			node = node.Parent
		}
	}
	return "unknown"
}
