package gateway

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion that MemGateway satisfies the Gateway interface.
var _ Gateway = (*MemGateway)(nil)

// MemGateway is a thread-safe, in-memory implementation of [Gateway].
// It backs the CLI's YAML-loaded worlds and the test suites.
// The zero value is ready to use.
type MemGateway struct {
	mu         sync.RWMutex
	components map[string]map[string]Component // entity ID → component type → data
}

// NewMemGateway returns an initialised [MemGateway].
func NewMemGateway() *MemGateway {
	return &MemGateway{
		components: make(map[string]map[string]Component),
	}
}

// GetComponent implements [Gateway.GetComponent]. The returned component is a
// deep copy; callers may mutate it freely.
func (g *MemGateway) GetComponent(ctx context.Context, entityID, componentType string) (Component, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	comps, ok := g.components[entityID]
	if !ok {
		return nil, ErrComponentNotFound
	}
	data, ok := comps[componentType]
	if !ok {
		return nil, ErrComponentNotFound
	}
	return data.Clone(), nil
}

// SetComponent implements [Gateway.SetComponent]. The data is deep-copied on
// write so later caller mutations cannot leak into the store.
func (g *MemGateway) SetComponent(ctx context.Context, entityID, componentType string, data Component) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.components == nil {
		g.components = make(map[string]map[string]Component)
	}
	comps, ok := g.components[entityID]
	if !ok {
		comps = make(map[string]Component)
		g.components[entityID] = comps
	}
	comps[componentType] = data.Clone()
	return nil
}

// RemoveComponent deletes a component from an entity. Removing a component
// that does not exist is a no-op.
func (g *MemGateway) RemoveComponent(ctx context.Context, entityID, componentType string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if comps, ok := g.components[entityID]; ok {
		delete(comps, componentType)
	}
	return nil
}

// EntityIDs returns the sorted IDs of all entities that carry at least one
// component.
func (g *MemGateway) EntityIDs(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.components))
	for id := range g.components {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
