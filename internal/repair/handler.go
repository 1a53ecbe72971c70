package repair

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MrWong99/scopeql/internal/clothing"
	"github.com/MrWong99/scopeql/internal/equipcache"
	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// userMessages maps each error code to its fixed, non-technical message.
// Diagnostic detail goes to the log, never to end users.
var userMessages = map[scoperr.Code]string{
	scoperr.CodeSyntax:           "That scope expression could not be understood.",
	scoperr.CodeUnknownRoot:      "That scope expression doesn't start from anything known.",
	scoperr.CodeUnknownReference: "That scope isn't defined.",
	scoperr.CodeInvalidSlot:      "You don't have any clothing equipped in that slot.",
	scoperr.CodeInvalidLayer:     "There's no clothing at that layer.",
	scoperr.CodeDataCorrupted:    "Some of your equipment couldn't be read and was skipped.",
	scoperr.CodeCycle:            "That scope loops back on itself and can't be resolved.",
	scoperr.CodeTooDeep:          "That scope expression is too deeply nested.",
	scoperr.CodePredicate:        "Part of that condition couldn't be checked.",
}

// genericMessage is used for errors outside the taxonomy.
const genericMessage = "Something went wrong resolving that scope."

// Outcome reports what the handler did with an error.
type Outcome struct {
	// Handled is true when the error belongs to the engine's taxonomy.
	Handled bool

	// Recovered is true when a recovery strategy repaired the underlying
	// data and resolution may be retried.
	Recovered bool

	// UserMessage is the fixed user-facing message for the error.
	UserMessage string

	// Diagnostic carries the developer detail for logging.
	Diagnostic scoperr.Diagnostic
}

// Option is a functional option for configuring a [Handler].
type Option func(*Handler)

// WithAutoMap controls whether similarity suggestions are applied
// automatically. When disabled, suggestions are only logged and the offending
// entry is dropped. Default: enabled.
func WithAutoMap(enabled bool) Option {
	return func(h *Handler) {
		h.autoMap = enabled
	}
}

// WithMatcher replaces the default name matcher.
func WithMatcher(m *Matcher) Option {
	return func(h *Handler) {
		h.matcher = m
	}
}

// Handler is the recovery subsystem. It owns the repair strategies and the
// user-message mapping. Safe for concurrent use; tuning can be replaced at
// runtime via [Handler.Retune].
type Handler struct {
	gw    gateway.Gateway
	cache *equipcache.Cache

	mu      sync.RWMutex
	matcher *Matcher
	autoMap bool
}

// NewHandler creates a [Handler] that repairs data through gw and invalidates
// cache after writing repaired components.
func NewHandler(gw gateway.Gateway, cache *equipcache.Cache, opts ...Option) *Handler {
	h := &Handler{
		gw:      gw,
		cache:   cache,
		matcher: NewMatcher(),
		autoMap: true,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Retune re-applies options to a live handler. Hosts call this when repair
// tuning (similarity threshold, auto-mapping) is hot-reloaded from config.
func (h *Handler) Retune(opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, o := range opts {
		o(h)
	}
}

// AutoMap reports whether similarity suggestions are applied automatically.
func (h *Handler) AutoMap() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.autoMap
}

func (h *Handler) currentMatcher() *Matcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.matcher
}

// Handle classifies err and returns the caller-facing outcome. It never
// returns an error itself: unrecognised errors come back unhandled with a
// generic message, and the caller treats that as a non-fatal empty result.
func (h *Handler) Handle(ctx context.Context, err error, entityID string) Outcome {
	var serr *scoperr.Error
	if !errors.As(err, &serr) {
		slog.Warn("unclassified resolution error", "entity", entityID, "error", err)
		return Outcome{UserMessage: genericMessage}
	}

	out := Outcome{
		Handled:     true,
		UserMessage: userMessages[serr.Code],
		Diagnostic:  serr.Diagnostic,
	}
	if out.UserMessage == "" {
		out.UserMessage = genericMessage
	}
	if serr.Fatal() {
		return out
	}

	switch serr.Code {
	case scoperr.CodeInvalidSlot, scoperr.CodeInvalidLayer, scoperr.CodeDataCorrupted:
		if _, rebuildErr := h.RebuildSnapshot(ctx, entityID); rebuildErr == nil {
			out.Recovered = true
		}
	}

	slog.Warn("recovered from resolution error",
		"entity", entityID,
		"code", serr.Code,
		"recovered", out.Recovered,
		"diagnostic_id", serr.Diagnostic.ID,
		"path", serr.PathString(),
		"detail", serr.Diagnostic.Detail,
	)
	return out
}

// UserMessage returns the fixed message for an error without attempting
// recovery.
func (h *Handler) UserMessage(err error) string {
	var serr *scoperr.Error
	if errors.As(err, &serr) {
		if msg, ok := userMessages[serr.Code]; ok {
			return msg
		}
	}
	return genericMessage
}

// SuggestSlot maps an unrecognised slot name to its nearest valid slot.
func (h *Handler) SuggestSlot(name string) (clothing.SlotID, bool) {
	candidates := make([]string, len(clothing.Slots))
	for i, s := range clothing.Slots {
		candidates[i] = string(s)
	}
	best, score, ok := h.currentMatcher().Suggest(name, candidates)
	if !ok {
		return "", false
	}
	slog.Debug("slot name suggestion", "input", name, "suggestion", best, "score", score)
	return clothing.SlotID(best), true
}

// SuggestLayer maps an unrecognised layer name to its nearest valid layer.
func (h *Handler) SuggestLayer(name string) (clothing.LayerID, bool) {
	candidates := make([]string, len(clothing.Layers))
	for i, l := range clothing.Layers {
		candidates[i] = string(l)
	}
	best, score, ok := h.currentMatcher().Suggest(name, candidates)
	if !ok {
		return "", false
	}
	slog.Debug("layer name suggestion", "input", name, "suggestion", best, "score", score)
	return clothing.LayerID(best), true
}

// nameMapper adapts the suggestion methods to the lenient snapshot parser.
// With auto-map disabled, every unrecognised name is dropped.
func (h *Handler) nameMapper() clothing.NameMapper {
	if !h.AutoMap() {
		return nil
	}
	return func(kind clothing.NameKind, name string) (string, bool) {
		switch kind {
		case clothing.NameSlot:
			if slot, ok := h.SuggestSlot(name); ok {
				return string(slot), true
			}
		case clothing.NameLayer:
			if layer, ok := h.SuggestLayer(name); ok {
				return string(layer), true
			}
		}
		return "", false
	}
}

// RebuildSnapshot reconstructs an entity's equipment snapshot from the raw
// component, accepting partial data. Repaired data is written back through
// the gateway and the cache entry is invalidated so the next fetch sees the
// repaired component. An entity whose equipment yields zero usable entries
// ends up with an empty snapshot — "no equipment", not a hard failure.
func (h *Handler) RebuildSnapshot(ctx context.Context, entityID string) (*clothing.Snapshot, error) {
	data, err := h.gw.GetComponent(ctx, entityID, clothing.ComponentEquipment)
	if errors.Is(err, gateway.ErrComponentNotFound) {
		return clothing.NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}

	snap, problems := clothing.ParseEquipmentLenient(data, h.nameMapper())
	for _, p := range problems {
		slog.Warn("equipment rebuild dropped entry", "entity", entityID, "problem", p)
	}

	if err := h.gw.SetComponent(ctx, entityID, clothing.ComponentEquipment, equipmentComponent(snap)); err != nil {
		// The rebuilt snapshot is still usable in-memory; only persistence
		// of the repair failed.
		slog.Warn("could not persist repaired equipment", "entity", entityID, "error", err)
	}
	if h.cache != nil {
		h.cache.Invalidate(entityID)
	}

	clothing.LoadDescriptors(ctx, h.gw, snap)
	slog.Info("equipment snapshot rebuilt", "entity", entityID, "dropped", len(problems))
	return snap, nil
}

// equipmentComponent serialises a snapshot back into component form.
func equipmentComponent(snap *clothing.Snapshot) gateway.Component {
	equipped := make(map[string]any, len(snap.Equipped))
	for slot, layers := range snap.Equipped {
		m := make(map[string]any, len(layers))
		for layer, item := range layers {
			m[string(layer)] = item
		}
		equipped[string(slot)] = m
	}
	unequipped := make([]any, 0, len(snap.Unequipped))
	for item := range snap.Unequipped {
		unequipped = append(unequipped, item)
	}
	return gateway.Component{
		"equipped":   equipped,
		"unequipped": unequipped,
	}
}
