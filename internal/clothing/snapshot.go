package clothing

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/scoperr"
)

// Snapshot is the per-entity equipment structure every derived view operates
// on. It is built once per fetch (and cached by the cache manager); views
// never mutate it.
type Snapshot struct {
	// Equipped maps slot → layer → item entity ID. At most one item per
	// (slot, layer) cell.
	Equipped map[SlotID]map[LayerID]string

	// Unequipped holds items owned but not worn. Excluded from all_clothing.
	Unequipped map[string]struct{}

	// Items holds the descriptors of every item referenced above, gathered
	// in one pass at build time.
	Items map[string]ItemInfo
}

// ItemInfo bundles an item's optional descriptors.
type ItemInfo struct {
	Wearable     Wearable
	HasWearable  bool
	Condition    Condition
	HasCondition bool
}

// NewSnapshot returns an empty snapshot. Resolving any clothing field against
// it yields an empty set.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Equipped:   make(map[SlotID]map[LayerID]string),
		Unequipped: make(map[string]struct{}),
		Items:      make(map[string]ItemInfo),
	}
}

// Fetch builds the equipment snapshot for an entity from its gateway
// components. An entity without an equipment component gets an empty
// snapshot, never an error. Malformed equipment data fails with a typed
// [*scoperr.Error] (invalid slot/layer, corrupted data) so that the recovery
// subsystem can attempt a rebuild.
func Fetch(ctx context.Context, gw gateway.Gateway, entityID string) (*Snapshot, error) {
	data, err := gw.GetComponent(ctx, entityID, ComponentEquipment)
	if errors.Is(err, gateway.ErrComponentNotFound) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clothing: fetch equipment of %q: %w", entityID, err)
	}

	snap, err := ParseEquipment(data)
	if err != nil {
		return nil, err
	}
	loadDescriptors(ctx, gw, snap)
	return snap, nil
}

// ParseEquipment strictly parses an equipment component:
//
//	equipped:
//	  torso_upper:
//	    outer: jacket_1
//	unequipped: [spare_shirt]
//
// Unknown slot or layer names and structurally malformed values return typed
// errors ([scoperr.CodeInvalidSlot], [scoperr.CodeInvalidLayer],
// [scoperr.CodeDataCorrupted]). The at-most-one-placement invariant is
// enforced: an item appearing in two cells, or both equipped and unequipped,
// is corrupted data.
func ParseEquipment(data gateway.Component) (*Snapshot, error) {
	snap := NewSnapshot()
	seen := make(map[string]string) // item ID → cell it occupies

	if raw, ok := data["equipped"]; ok {
		slots, ok := asMap(raw)
		if !ok {
			return nil, scoperr.New(scoperr.CodeDataCorrupted,
				"equipped is not a map").WithDetail("got %T", raw)
		}
		for slotName, rawLayers := range slots {
			slot := SlotID(slotName)
			if !slot.IsValid() {
				return nil, scoperr.New(scoperr.CodeInvalidSlot,
					"unknown equipment slot %q", slotName)
			}
			layers, ok := asMap(rawLayers)
			if !ok {
				return nil, scoperr.New(scoperr.CodeDataCorrupted,
					"slot %q is not a layer map", slotName).WithDetail("got %T", rawLayers)
			}
			for layerName, rawItem := range layers {
				layer := LayerID(layerName)
				if !layer.IsValid() {
					return nil, scoperr.New(scoperr.CodeInvalidLayer,
						"unknown clothing layer %q in slot %q", layerName, slotName)
				}
				itemID, ok := rawItem.(string)
				if !ok || itemID == "" {
					return nil, scoperr.New(scoperr.CodeDataCorrupted,
						"slot %q layer %q does not hold an entity ID", slotName, layerName).
						WithDetail("got %T (%v)", rawItem, rawItem)
				}
				cell := slotName + "/" + layerName
				if prev, dup := seen[itemID]; dup {
					return nil, scoperr.New(scoperr.CodeDataCorrupted,
						"item %q equipped in both %s and %s", itemID, prev, cell)
				}
				seen[itemID] = cell
				if snap.Equipped[slot] == nil {
					snap.Equipped[slot] = make(map[LayerID]string)
				}
				snap.Equipped[slot][layer] = itemID
			}
		}
	}

	if raw, ok := data["unequipped"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, scoperr.New(scoperr.CodeDataCorrupted,
				"unequipped is not a list").WithDetail("got %T", raw)
		}
		for _, rawItem := range list {
			itemID, ok := rawItem.(string)
			if !ok || itemID == "" {
				return nil, scoperr.New(scoperr.CodeDataCorrupted,
					"unequipped entry is not an entity ID").WithDetail("got %T (%v)", rawItem, rawItem)
			}
			if cell, dup := seen[itemID]; dup {
				return nil, scoperr.New(scoperr.CodeDataCorrupted,
					"item %q is both unequipped and equipped in %s", itemID, cell)
			}
			seen[itemID] = "unequipped"
			snap.Unequipped[itemID] = struct{}{}
		}
	}

	return snap, nil
}

// NameKind tells a lenient-parse name mapper whether it is looking at a slot
// or a layer name.
type NameKind string

const (
	NameSlot  NameKind = "slot"
	NameLayer NameKind = "layer"
)

// NameMapper attempts to map an unrecognised slot or layer name to a valid
// one. Returning ok=false drops the offending entry.
type NameMapper func(kind NameKind, name string) (string, bool)

// ParseEquipmentLenient parses an equipment component accepting partial data:
// unrecognised names are offered to mapName (nil means "never map"); entries
// that still don't validate are dropped and reported in problems instead of
// failing the parse. Best-effort by design — the recovery subsystem uses this
// to rebuild corrupted snapshots.
func ParseEquipmentLenient(data gateway.Component, mapName NameMapper) (*Snapshot, []string) {
	snap := NewSnapshot()
	var problems []string
	drop := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	seen := make(map[string]bool)

	if slots, ok := asMap(data["equipped"]); ok {
		for slotName, rawLayers := range slots {
			slot := SlotID(slotName)
			if !slot.IsValid() {
				mapped, ok := tryMap(mapName, NameSlot, slotName)
				if !ok {
					drop("dropped slot %q: unknown slot name", slotName)
					continue
				}
				slot = SlotID(mapped)
			}
			layers, ok := asMap(rawLayers)
			if !ok {
				drop("dropped slot %q: not a layer map", slotName)
				continue
			}
			for layerName, rawItem := range layers {
				layer := LayerID(layerName)
				if !layer.IsValid() {
					mapped, ok := tryMap(mapName, NameLayer, layerName)
					if !ok {
						drop("dropped %s/%s: unknown layer name", slotName, layerName)
						continue
					}
					layer = LayerID(mapped)
				}
				itemID, ok := rawItem.(string)
				if !ok || itemID == "" {
					drop("dropped %s/%s: no entity ID", slotName, layerName)
					continue
				}
				if seen[itemID] {
					drop("dropped %s/%s: item %q already placed", slotName, layerName, itemID)
					continue
				}
				if snap.Equipped[slot] == nil {
					snap.Equipped[slot] = make(map[LayerID]string)
				}
				if _, occupied := snap.Equipped[slot][layer]; occupied {
					drop("dropped %s/%s: cell already occupied", slotName, layerName)
					continue
				}
				seen[itemID] = true
				snap.Equipped[slot][layer] = itemID
			}
		}
	} else if _, present := data["equipped"]; present {
		drop("dropped equipped map: not a map")
	}

	if list, ok := data["unequipped"].([]any); ok {
		for _, rawItem := range list {
			itemID, ok := rawItem.(string)
			if !ok || itemID == "" || seen[itemID] {
				drop("dropped unequipped entry %v", rawItem)
				continue
			}
			seen[itemID] = true
			snap.Unequipped[itemID] = struct{}{}
		}
	} else if _, present := data["unequipped"]; present {
		drop("dropped unequipped list: not a list")
	}

	return snap, problems
}

// LoadDescriptors gathers the wearable and condition descriptors of every
// item referenced by snap in a single pass. Missing descriptors are ordinary
// (the item simply has none); gateway failures for one item never fail the
// snapshot.
func LoadDescriptors(ctx context.Context, gw gateway.Gateway, snap *Snapshot) {
	loadDescriptors(ctx, gw, snap)
}

func loadDescriptors(ctx context.Context, gw gateway.Gateway, snap *Snapshot) {
	for _, layers := range snap.Equipped {
		for _, itemID := range layers {
			snap.Items[itemID] = fetchItemInfo(ctx, gw, itemID)
		}
	}
	for itemID := range snap.Unequipped {
		snap.Items[itemID] = fetchItemInfo(ctx, gw, itemID)
	}
}

func fetchItemInfo(ctx context.Context, gw gateway.Gateway, itemID string) ItemInfo {
	var info ItemInfo
	if data, err := gw.GetComponent(ctx, itemID, ComponentWearable); err == nil {
		info.Wearable = parseWearable(data)
		info.HasWearable = true
	}
	if data, err := gw.GetComponent(ctx, itemID, ComponentCondition); err == nil {
		info.Condition = parseCondition(data)
		info.HasCondition = true
	}
	return info
}

// parseWearable decodes a wearable descriptor, tolerating missing fields.
func parseWearable(data gateway.Component) Wearable {
	w := Wearable{Tags: make(map[string]struct{})}
	if s, ok := data["layer"].(string); ok {
		w.Layer = LayerID(s)
	}
	if s, ok := data["slot_affinity"].(string); ok {
		w.SlotAffinity = SlotID(s)
	}
	if list, ok := data["tags"].([]any); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				w.Tags[s] = struct{}{}
			}
		}
	}
	return w
}

// parseCondition decodes a condition descriptor, tolerating missing fields.
func parseCondition(data gateway.Component) Condition {
	var c Condition
	if b, ok := data["dirty"].(bool); ok {
		c.Dirty = b
	}
	switch v := data["cleanliness"].(type) {
	case int:
		c.Cleanliness = v
	case float64:
		c.Cleanliness = int(v)
	}
	return c
}

func tryMap(mapName NameMapper, kind NameKind, name string) (string, bool) {
	if mapName == nil {
		return "", false
	}
	return mapName(kind, name)
}

// asMap normalises the two map shapes YAML/JSON decoding can produce.
func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case gateway.Component:
		return t, true
	default:
		return nil, false
	}
}
