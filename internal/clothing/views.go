package clothing

// Derived views over a [Snapshot]. Every view is a pure read — snapshots are
// shared via the cache manager and must never be mutated here. Views return
// plain slices; de-duplication across traversal paths is the resolver chain's
// job (results are sets).

// Topmost returns, for every occupied slot, the item in the highest-priority
// occupied layer. Accessories never participate.
func (s *Snapshot) Topmost() []string {
	var out []string
	for slot := range s.Equipped {
		if item, ok := s.TopmostForSlot(slot); ok {
			out = append(out, item)
		}
	}
	return out
}

// TopmostForSlot returns the topmost item of one slot: the occupant of the
// highest-priority occupied layer, deterministically, or ok=false when no
// priority layer is occupied.
func (s *Snapshot) TopmostForSlot(slot SlotID) (string, bool) {
	layers, ok := s.Equipped[slot]
	if !ok {
		return "", false
	}
	for _, layer := range priorityLayers {
		if item, ok := layers[layer]; ok {
			return item, true
		}
	}
	return "", false
}

// AllInSlot returns every item equipped in the slot across all layers,
// accessories included. This backs slot access with the [] suffix.
func (s *Snapshot) AllInSlot(slot SlotID) []string {
	layers, ok := s.Equipped[slot]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(layers))
	for _, layer := range Layers {
		if item, ok := layers[layer]; ok {
			out = append(out, item)
		}
	}
	return out
}

// All returns every worn item: the union of all (slot, layer) occupants.
// Owned-but-unworn items are excluded — all_clothing means worn.
func (s *Snapshot) All() []string {
	var out []string
	for _, layers := range s.Equipped {
		for _, item := range layers {
			out = append(out, item)
		}
	}
	return out
}

// InLayer returns the occupants of one layer across all slots.
func (s *Snapshot) InLayer(layer LayerID) []string {
	var out []string
	for _, layers := range s.Equipped {
		if item, ok := layers[layer]; ok {
			out = append(out, item)
		}
	}
	return out
}

// Visible returns the items observable by others: outer layer plus
// accessories.
func (s *Snapshot) Visible() []string {
	return append(s.InLayer(LayerOuter), s.InLayer(LayerAccessories)...)
}

// Removable returns outer plus base occupants. Underwear is excluded
// unconditionally — the view is context-free, and privacy-conditional
// underwear removal is the caller's own filter predicate.
func (s *Snapshot) Removable() []string {
	return append(s.InLayer(LayerOuter), s.InLayer(LayerBase)...)
}

// Formal returns worn items tagged "formal".
func (s *Snapshot) Formal() []string {
	return s.partitionByTag(FormalTag, true)
}

// Casual returns worn items without the "formal" tag. An item with no
// wearable descriptor counts as casual.
func (s *Snapshot) Casual() []string {
	return s.partitionByTag(FormalTag, false)
}

// Dirty returns worn items whose condition descriptor marks them dirty.
func (s *Snapshot) Dirty() []string {
	return s.partitionByDirty(true)
}

// Clean returns worn items not marked dirty. An item without a condition
// descriptor is treated as clean by default.
func (s *Snapshot) Clean() []string {
	return s.partitionByDirty(false)
}

// View resolves a domain clothing field against the snapshot. The second
// return value is false for names that are not clothing fields.
func (s *Snapshot) View(field Field) ([]string, bool) {
	switch field {
	case FieldTopmost:
		return s.Topmost(), true
	case FieldAll:
		return s.All(), true
	case FieldOuter:
		return s.InLayer(LayerOuter), true
	case FieldBase:
		return s.InLayer(LayerBase), true
	case FieldUnderwear:
		return s.InLayer(LayerUnderwear), true
	case FieldVisible:
		return s.Visible(), true
	case FieldRemovable:
		return s.Removable(), true
	case FieldFormal:
		return s.Formal(), true
	case FieldCasual:
		return s.Casual(), true
	case FieldDirty:
		return s.Dirty(), true
	case FieldClean:
		return s.Clean(), true
	}
	return nil, false
}

func (s *Snapshot) partitionByTag(tag string, want bool) []string {
	var out []string
	for _, item := range s.All() {
		info := s.Items[item]
		if (info.HasWearable && info.Wearable.HasTag(tag)) == want {
			out = append(out, item)
		}
	}
	return out
}

func (s *Snapshot) partitionByDirty(want bool) []string {
	var out []string
	for _, item := range s.All() {
		info := s.Items[item]
		if (info.HasCondition && info.Condition.Dirty) == want {
			out = append(out, item)
		}
	}
	return out
}
