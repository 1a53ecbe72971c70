// Package clothing implements the slot × layer equipment model behind the
// domain clothing fields of the scope DSL (topmost_clothing, all_clothing,
// visible_clothing, ...).
//
// An entity's worn items live in an equipment component: per slot, at most
// one item per layer. Layers have a fixed priority order (outer > base >
// underwear) used by topmost resolution; accessories sit outside that order
// and never win a topmost lookup. All derived views operate on a single
// fetched [Snapshot] — per-item descriptors are gathered once at snapshot
// build time so no view triggers further gateway calls.
package clothing

// Component types consumed by this package.
const (
	// ComponentEquipment is the per-wearer component holding the slot ×
	// layer map of equipped items and the list of owned-but-unworn items.
	ComponentEquipment = "clothing:equipment"

	// ComponentWearable is the per-item descriptor (layer, tags, slot
	// affinity).
	ComponentWearable = "clothing:wearable"

	// ComponentCondition is the optional per-item condition descriptor
	// (dirty flag, cleanliness score).
	ComponentCondition = "clothing:condition"
)

// SlotID is a named equipment location on an entity. The set is closed:
// unknown slot names are a validation error (optionally repaired by the
// recovery subsystem), never silently ignored.
type SlotID string

const (
	SlotTorsoUpper SlotID = "torso_upper"
	SlotTorsoLower SlotID = "torso_lower"
	SlotLegs       SlotID = "legs"
	SlotFeet       SlotID = "feet"
	SlotHeadGear   SlotID = "head_gear"
	SlotHands      SlotID = "hands"
	SlotLeftArm    SlotID = "left_arm_clothing"
	SlotRightArm   SlotID = "right_arm_clothing"
)

// Slots lists every valid slot.
var Slots = []SlotID{
	SlotTorsoUpper, SlotTorsoLower, SlotLegs, SlotFeet,
	SlotHeadGear, SlotHands, SlotLeftArm, SlotRightArm,
}

// IsValid reports whether s is a recognised slot.
func (s SlotID) IsValid() bool {
	switch s {
	case SlotTorsoUpper, SlotTorsoLower, SlotLegs, SlotFeet,
		SlotHeadGear, SlotHands, SlotLeftArm, SlotRightArm:
		return true
	}
	return false
}

// LayerID is a depth tier within a slot.
type LayerID string

const (
	LayerOuter       LayerID = "outer"
	LayerBase        LayerID = "base"
	LayerUnderwear   LayerID = "underwear"
	LayerAccessories LayerID = "accessories"
)

// Layers lists every valid layer.
var Layers = []LayerID{LayerOuter, LayerBase, LayerUnderwear, LayerAccessories}

// priorityLayers is the topmost resolution order, highest priority first.
// Accessories deliberately do not appear: they never win a topmost lookup.
var priorityLayers = []LayerID{LayerOuter, LayerBase, LayerUnderwear}

// IsValid reports whether l is a recognised layer.
func (l LayerID) IsValid() bool {
	switch l {
	case LayerOuter, LayerBase, LayerUnderwear, LayerAccessories:
		return true
	}
	return false
}

// Field is a domain clothing field of the scope DSL.
type Field string

const (
	FieldTopmost   Field = "topmost_clothing"
	FieldAll       Field = "all_clothing"
	FieldOuter     Field = "outer_clothing"
	FieldBase      Field = "base_clothing"
	FieldUnderwear Field = "underwear"
	FieldVisible   Field = "visible_clothing"
	FieldRemovable Field = "removable_clothing"
	FieldFormal    Field = "formal_clothing"
	FieldCasual    Field = "casual_clothing"
	FieldDirty     Field = "dirty_clothing"
	FieldClean     Field = "clean_clothing"
)

// IsField reports whether name is a domain clothing field. Field names take
// precedence over generic component lookups in the resolver chain.
func IsField(name string) bool {
	switch Field(name) {
	case FieldTopmost, FieldAll, FieldOuter, FieldBase, FieldUnderwear,
		FieldVisible, FieldRemovable, FieldFormal, FieldCasual,
		FieldDirty, FieldClean:
		return true
	}
	return false
}

// FormalTag is the wearable tag that partitions formal from casual clothing.
const FormalTag = "formal"

// Wearable is the per-item descriptor. Read-only from the engine's
// perspective; only external equip/unequip operations mutate it.
type Wearable struct {
	Layer        LayerID
	Tags         map[string]struct{}
	SlotAffinity SlotID
}

// HasTag reports whether the item carries the given tag.
func (w Wearable) HasTag(tag string) bool {
	_, ok := w.Tags[tag]
	return ok
}

// Condition is the optional per-item condition descriptor. An item without
// one is treated as clean by default.
type Condition struct {
	Dirty       bool
	Cleanliness int
}
