package world_test

import (
	"context"
	"strings"
	"testing"

	"github.com/MrWong99/scopeql/internal/gateway"
	"github.com/MrWong99/scopeql/internal/world"
)

const tavernFixture = `
world:
  name: tavern-demo
  description: two villagers in the common room
entities:
  - id: "npc:villager_01"
    components:
      clothing:equipment:
        equipped:
          torso_upper:
            outer: "item:jacket_01"
      owner:
        id: "npc:innkeeper"
  - id: "item:jacket_01"
    components:
      clothing:wearable:
        layer: outer
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	wf, err := world.LoadFromReader(strings.NewReader(tavernFixture))
	if err != nil {
		t.Fatalf("LoadFromReader: unexpected error: %v", err)
	}

	if wf.World.Name != "tavern-demo" {
		t.Errorf("world name = %q, want tavern-demo", wf.World.Name)
	}
	if len(wf.Entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(wf.Entities))
	}
	if wf.Entities[0].ID != "npc:villager_01" {
		t.Errorf("first entity = %q", wf.Entities[0].ID)
	}
	if _, ok := wf.Entities[0].Components["clothing:equipment"]; !ok {
		t.Error("villager is missing the equipment component")
	}
}

func TestLoadFromReaderRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := world.LoadFromReader(strings.NewReader("entitees:\n  - id: x\n"))
	if err == nil {
		t.Fatal("expected an error for a misspelt top-level key")
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wf, err := world.LoadFromReader(strings.NewReader(tavernFixture))
	if err != nil {
		t.Fatalf("LoadFromReader: unexpected error: %v", err)
	}

	gw := gateway.NewMemGateway()
	n, err := world.Import(ctx, gw, wf)
	if err != nil {
		t.Fatalf("Import: unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d components, want 3", n)
	}

	data, err := gw.GetComponent(ctx, "npc:villager_01", "clothing:equipment")
	if err != nil {
		t.Fatalf("GetComponent: %v", err)
	}
	if data["equipped"] == nil {
		t.Error("equipment component lost its data on import")
	}
}

func TestImportRejectsMissingID(t *testing.T) {
	t.Parallel()

	wf := &world.File{Entities: []world.EntityDefinition{{
		Components: map[string]map[string]any{"owner": {"id": "npc:x"}},
	}}}

	_, err := world.Import(context.Background(), gateway.NewMemGateway(), wf)
	if err == nil || !strings.Contains(err.Error(), "has no id") {
		t.Fatalf("expected a missing-id error, got %v", err)
	}
}

func TestImportNilFixture(t *testing.T) {
	t.Parallel()

	if _, err := world.Import(context.Background(), gateway.NewMemGateway(), nil); err == nil {
		t.Fatal("expected an error for a nil fixture")
	}
}
