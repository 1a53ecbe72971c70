// Package gateway defines the narrow interface through which the scope engine
// reads and repairs entity component data. The engine never owns entities —
// it borrows them by ID for the duration of a resolution call — and it never
// persists anything itself: all repairs go back through [Gateway.SetComponent].
//
// Two implementations ship with scopeql: the in-memory [MemGateway] for tests
// and the CLI, and a PostgreSQL-backed store in the postgres subpackage for
// hosts that keep their entity data in a database.
package gateway

import (
	"context"
	"errors"
)

// ErrComponentNotFound is returned by GetComponent when the entity has no
// component of the requested type. Absence is ordinary — most entities carry
// only a handful of component types — so callers usually treat this as an
// empty result rather than a failure.
var ErrComponentNotFound = errors.New("component not found")

// Component is one entity component's data: a free-form document keyed by
// field name. Values follow YAML/JSON decoding conventions (string, float64,
// bool, []any, map[string]any).
type Component map[string]any

// Gateway supplies component data for entity IDs.
//
// All implementations must be safe for concurrent use.
type Gateway interface {
	// GetComponent returns the component of the given type on the entity.
	// Returns [ErrComponentNotFound] when the entity has no such component.
	GetComponent(ctx context.Context, entityID, componentType string) (Component, error)

	// SetComponent writes a component, replacing any previous data of the
	// same type on the entity. Used by the recovery subsystem to persist
	// repaired equipment data.
	SetComponent(ctx context.Context, entityID, componentType string, data Component) error
}

// Clone returns a deep copy of c safe to mutate without aliasing the
// gateway's stored data. Only the container types produced by YAML/JSON
// decoding are descended into.
func (c Component) Clone() Component {
	if c == nil {
		return nil
	}
	out := make(Component, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Component:
		return map[string]any(t.Clone())
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
