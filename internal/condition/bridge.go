package condition

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/MrWong99/scopeql/internal/clothing"
	"github.com/MrWong99/scopeql/internal/equipcache"
	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// Compile-time assertion that Bridge satisfies the Evaluator interface.
var _ Evaluator = (*Bridge)(nil)

// Bridge is the built-in [Evaluator]. It ships with the domain predicate
// operators (is_in_layer, is_equipped_in_slot, has_tags, is_dirty) backed by
// the gateway and snapshot cache, and accepts additional host predicates via
// [Bridge.Register].
//
// Safe for concurrent use; registration typically happens once at startup.
type Bridge struct {
	gw    gateway.Gateway
	cache *equipcache.Cache

	mu    sync.RWMutex
	preds map[string]PredicateFunc
}

// NewBridge creates a [Bridge] with the domain predicates registered.
func NewBridge(gw gateway.Gateway, cache *equipcache.Cache) *Bridge {
	b := &Bridge{
		gw:    gw,
		cache: cache,
		preds: make(map[string]PredicateFunc),
	}
	b.Register("is_in_layer", b.isInLayer)
	b.Register("is_equipped_in_slot", b.isEquippedInSlot)
	b.Register("has_tags", b.hasTags)
	b.Register("is_dirty", b.isDirty)
	return b
}

// Register adds or replaces a named predicate operator.
func (b *Bridge) Register(name string, fn PredicateFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preds[name] = fn
}

// Evaluate implements [Evaluator]. A parse failure or a predicate error
// returns false with a [scoperr.CodePredicate] error; the filter resolver
// treats that as "no match" for the candidate.
func (b *Bridge) Evaluate(ctx context.Context, predicate string, bindings Bindings) (bool, error) {
	tree, err := parsePredicate(predicate)
	if err != nil {
		return false, err
	}

	b.mu.RLock()
	preds := make(map[string]PredicateFunc, len(b.preds))
	for name, fn := range b.preds {
		preds[name] = fn
	}
	b.mu.RUnlock()

	return tree.eval(ctx, preds, bindings)
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain predicates
// ─────────────────────────────────────────────────────────────────────────────

// isInLayer: is_in_layer(item, layer) — the item's wearable descriptor names
// the given layer.
func (b *Bridge) isInLayer(ctx context.Context, args []string) (bool, error) {
	if len(args) != 2 {
		return false, scoperr.New(scoperr.CodePredicate, "is_in_layer wants 2 arguments, got %d", len(args))
	}
	item, layer := args[0], clothing.LayerID(args[1])
	if !layer.IsValid() {
		return false, scoperr.New(scoperr.CodePredicate, "is_in_layer: unknown layer %q", args[1])
	}
	w, ok, err := b.wearableOf(ctx, item)
	if err != nil || !ok {
		return false, err
	}
	return w.Layer == layer, nil
}

// isEquippedInSlot: is_equipped_in_slot(actor, item, slot) — the wearer's
// snapshot holds the item in any layer of the given slot.
func (b *Bridge) isEquippedInSlot(ctx context.Context, args []string) (bool, error) {
	if len(args) != 3 {
		return false, scoperr.New(scoperr.CodePredicate, "is_equipped_in_slot wants 3 arguments, got %d", len(args))
	}
	wearer, item, slot := args[0], args[1], clothing.SlotID(args[2])
	if !slot.IsValid() {
		return false, scoperr.New(scoperr.CodePredicate, "is_equipped_in_slot: unknown slot %q", args[2])
	}
	snap, err := b.cache.GetOrFetch(ctx, wearer)
	if err != nil {
		return false, scoperr.New(scoperr.CodePredicate, "is_equipped_in_slot: snapshot of %q: %v", wearer, err)
	}
	return slices.Contains(snap.AllInSlot(slot), item), nil
}

// hasTags: has_tags(item, tag...) — the item carries every listed tag.
func (b *Bridge) hasTags(ctx context.Context, args []string) (bool, error) {
	if len(args) < 2 {
		return false, scoperr.New(scoperr.CodePredicate, "has_tags wants an item and at least one tag")
	}
	w, ok, err := b.wearableOf(ctx, args[0])
	if err != nil || !ok {
		return false, err
	}
	for _, tag := range args[1:] {
		if !w.HasTag(tag) {
			return false, nil
		}
	}
	return true, nil
}

// isDirty: is_dirty(item) — the item's condition descriptor marks it dirty.
// An item without a condition descriptor is clean.
func (b *Bridge) isDirty(ctx context.Context, args []string) (bool, error) {
	if len(args) != 1 {
		return false, scoperr.New(scoperr.CodePredicate, "is_dirty wants 1 argument, got %d", len(args))
	}
	data, err := b.gw.GetComponent(ctx, args[0], clothing.ComponentCondition)
	if errors.Is(err, gateway.ErrComponentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, scoperr.New(scoperr.CodePredicate, "is_dirty: read condition of %q: %v", args[0], err)
	}
	dirty, _ := data["dirty"].(bool)
	return dirty, nil
}

// wearableOf reads an item's wearable descriptor. ok=false means the item has
// none, which predicates treat as a plain non-match.
func (b *Bridge) wearableOf(ctx context.Context, item string) (clothing.Wearable, bool, error) {
	data, err := b.gw.GetComponent(ctx, item, clothing.ComponentWearable)
	if errors.Is(err, gateway.ErrComponentNotFound) {
		return clothing.Wearable{}, false, nil
	}
	if err != nil {
		return clothing.Wearable{}, false, scoperr.New(scoperr.CodePredicate, "read wearable of %q: %v", item, err)
	}
	w := clothing.Wearable{Tags: make(map[string]struct{})}
	if s, ok := data["layer"].(string); ok {
		w.Layer = clothing.LayerID(s)
	}
	if s, ok := data["slot_affinity"].(string); ok {
		w.SlotAffinity = clothing.SlotID(s)
	}
	if list, ok := data["tags"].([]any); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				w.Tags[s] = struct{}{}
			}
		}
	}
	return w, true, nil
}
