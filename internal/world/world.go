// Package world loads entity fixtures from YAML files into a component
// gateway. Fixtures seed test worlds and demo setups; production hosts
// usually populate the gateway from their own entity system instead.
package world

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/scopeql/internal/gateway"
)

// File is the top-level structure of a world YAML file.
//
// Example:
//
//	world:
//	  name: "tavern-demo"
//	entities:
//	  - id: "npc:villager_01"
//	    components:
//	      clothing:equipment:
//	        equipped:
//	          torso_upper:
//	            outer: "item:jacket_01"
type File struct {
	World    Meta               `yaml:"world"`
	Entities []EntityDefinition `yaml:"entities"`
}

// Meta holds top-level metadata for a world fixture.
type Meta struct {
	// Name is the fixture's display name, used in logs only.
	Name string `yaml:"name"`

	// Description is a free-text summary of the fixture.
	Description string `yaml:"description"`
}

// EntityDefinition describes one entity and its components.
type EntityDefinition struct {
	// ID is the entity identifier referenced by scope expressions.
	ID string `yaml:"id"`

	// Components maps component type names to their data.
	Components map[string]map[string]any `yaml:"components"`
}

// LoadFile reads and parses a world YAML file from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: open fixture %q: %w", path, err)
	}
	defer f.Close()

	wf, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("world: parse fixture %q: %w", path, err)
	}
	return wf, nil
}

// LoadFromReader parses world YAML from an [io.Reader].
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(r io.Reader) (*File, error) {
	var wf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown top-level keys to catch typos
	if err := dec.Decode(&wf); err != nil {
		return nil, fmt.Errorf("world: decode yaml: %w", err)
	}
	return &wf, nil
}

// Import writes all entities from a parsed [File] into gw.
// Returns the number of components successfully written.
// A gateway error aborts the import and returns the count so far.
func Import(ctx context.Context, gw gateway.Gateway, wf *File) (int, error) {
	if wf == nil {
		return 0, fmt.Errorf("world: fixture must not be nil")
	}

	n := 0
	for i, ent := range wf.Entities {
		if ent.ID == "" {
			return n, fmt.Errorf("world: entities[%d] has no id", i)
		}
		for componentType, data := range ent.Components {
			if err := gw.SetComponent(ctx, ent.ID, componentType, gateway.Component(data)); err != nil {
				return n, fmt.Errorf("world: import %q component %q: %w", ent.ID, componentType, err)
			}
			n++
		}
	}
	return n, nil
}
