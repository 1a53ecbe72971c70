package clothing_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/scopeql/internal/clothing"
)

// testSnapshot builds a snapshot with a torso (outer jacket over base shirt
// over underwear vest), trousers, an accessory scarf, and one unworn spare.
func testSnapshot() *clothing.Snapshot {
	snap := clothing.NewSnapshot()
	snap.Equipped[clothing.SlotTorsoUpper] = map[clothing.LayerID]string{
		clothing.LayerOuter:       "jacket_1",
		clothing.LayerBase:        "shirt_1",
		clothing.LayerUnderwear:   "vest_1",
		clothing.LayerAccessories: "scarf_1",
	}
	snap.Equipped[clothing.SlotLegs] = map[clothing.LayerID]string{
		clothing.LayerBase: "trousers_1",
	}
	snap.Unequipped["spare_shirt"] = struct{}{}

	snap.Items["jacket_1"] = clothing.ItemInfo{
		HasWearable: true,
		Wearable: clothing.Wearable{
			Layer: clothing.LayerOuter,
			Tags:  map[string]struct{}{clothing.FormalTag: {}},
		},
		HasCondition: true,
		Condition:    clothing.Condition{Dirty: true, Cleanliness: 30},
	}
	snap.Items["shirt_1"] = clothing.ItemInfo{
		HasWearable: true,
		Wearable:    clothing.Wearable{Layer: clothing.LayerBase},
	}
	return snap
}

func sorted(items []string) []string {
	out := slices.Clone(items)
	slices.Sort(out)
	return out
}

func TestTopmostForSlot(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()

	t.Run("outer wins over base", func(t *testing.T) {
		t.Parallel()
		item, ok := snap.TopmostForSlot(clothing.SlotTorsoUpper)
		if !ok || item != "jacket_1" {
			t.Fatalf("expected jacket_1, got %q (ok=%v)", item, ok)
		}
	})

	t.Run("base wins when no outer", func(t *testing.T) {
		t.Parallel()
		item, ok := snap.TopmostForSlot(clothing.SlotLegs)
		if !ok || item != "trousers_1" {
			t.Fatalf("expected trousers_1, got %q (ok=%v)", item, ok)
		}
	})

	t.Run("accessory alone never wins", func(t *testing.T) {
		t.Parallel()
		s := clothing.NewSnapshot()
		s.Equipped[clothing.SlotTorsoUpper] = map[clothing.LayerID]string{
			clothing.LayerAccessories: "scarf_1",
		}
		if _, ok := s.TopmostForSlot(clothing.SlotTorsoUpper); ok {
			t.Fatal("accessories must not win a topmost lookup")
		}
	})

	t.Run("empty slot", func(t *testing.T) {
		t.Parallel()
		if _, ok := snap.TopmostForSlot(clothing.SlotFeet); ok {
			t.Fatal("expected no topmost item for an empty slot")
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		t.Parallel()
		first, _ := snap.TopmostForSlot(clothing.SlotTorsoUpper)
		for range 10 {
			again, _ := snap.TopmostForSlot(clothing.SlotTorsoUpper)
			if again != first {
				t.Fatalf("TopmostForSlot not deterministic: %q then %q", first, again)
			}
		}
	})
}

func TestViews(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()

	tests := []struct {
		name  string
		field clothing.Field
		want  []string
	}{
		{"topmost across slots", clothing.FieldTopmost, []string{"jacket_1", "trousers_1"}},
		{"all worn excludes unequipped", clothing.FieldAll, []string{"jacket_1", "scarf_1", "shirt_1", "trousers_1", "vest_1"}},
		{"outer layer", clothing.FieldOuter, []string{"jacket_1"}},
		{"base layer", clothing.FieldBase, []string{"shirt_1", "trousers_1"}},
		{"underwear layer", clothing.FieldUnderwear, []string{"vest_1"}},
		{"visible is outer plus accessories", clothing.FieldVisible, []string{"jacket_1", "scarf_1"}},
		{"removable is outer plus base", clothing.FieldRemovable, []string{"jacket_1", "shirt_1", "trousers_1"}},
		{"formal by tag", clothing.FieldFormal, []string{"jacket_1"}},
		{"casual includes undescribed items", clothing.FieldCasual, []string{"scarf_1", "shirt_1", "trousers_1", "vest_1"}},
		{"dirty by condition", clothing.FieldDirty, []string{"jacket_1"}},
		{"clean includes undescribed items", clothing.FieldClean, []string{"scarf_1", "shirt_1", "trousers_1", "vest_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := snap.View(tt.field)
			if !ok {
				t.Fatalf("View(%s): not recognised as a clothing field", tt.field)
			}
			if !slices.Equal(sorted(got), tt.want) {
				t.Fatalf("View(%s) = %v, want %v", tt.field, sorted(got), tt.want)
			}
		})
	}

	t.Run("unknown field name", func(t *testing.T) {
		t.Parallel()
		if _, ok := snap.View(clothing.Field("hairstyle")); ok {
			t.Fatal("View must reject non-clothing fields")
		}
	})
}

func TestAllInSlot(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	got := snap.AllInSlot(clothing.SlotTorsoUpper)
	want := []string{"jacket_1", "scarf_1", "shirt_1", "vest_1"}
	if !slices.Equal(sorted(got), want) {
		t.Fatalf("AllInSlot = %v, want %v", sorted(got), want)
	}
	if snap.AllInSlot(clothing.SlotFeet) != nil {
		t.Fatal("AllInSlot of an empty slot must be empty")
	}
}

func TestIsField(t *testing.T) {
	t.Parallel()

	if !clothing.IsField("topmost_clothing") {
		t.Fatal("topmost_clothing must be a clothing field")
	}
	if clothing.IsField("torso_upper") {
		t.Fatal("slot names are not clothing fields")
	}
	if clothing.IsField("followers") {
		t.Fatal("generic component names are not clothing fields")
	}
}
