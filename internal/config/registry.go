package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/scopeql/internal/gateway"
)

// ErrBackendNotRegistered is returned by [Registry.Create] when no factory
// has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: storage backend not registered")

// BackendFactory constructs a gateway from its storage configuration.
type BackendFactory func(ctx context.Context, cfg StorageConfig) (gateway.Gateway, error)

// Registry maps backend names to gateway constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Backend]BackendFactory
}

// NewRegistry returns a [Registry] pre-populated with the in-memory backend.
// The postgres backend is registered by the binary that links it, keeping
// the database driver out of hosts that only embed the resolver.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Backend]BackendFactory)}
	r.Register(BackendMemory, func(ctx context.Context, cfg StorageConfig) (gateway.Gateway, error) {
		return gateway.NewMemGateway(), nil
	})
	return r
}

// Register adds or replaces the factory for the given backend name.
func (r *Registry) Register(name Backend, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create constructs the gateway selected by cfg. An empty backend name
// selects the in-memory backend.
func (r *Registry) Create(ctx context.Context, cfg StorageConfig) (gateway.Gateway, error) {
	name := cfg.Backend
	if name == "" {
		name = BackendMemory
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, name)
	}
	return factory(ctx, cfg)
}
