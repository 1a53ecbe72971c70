package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/scopeql/internal/gateway"
)

var _ gateway.Gateway = (*Store)(nil)

// Store is a PostgreSQL-backed component gateway. It holds a single
// [pgxpool.Pool]; all methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn
// and runs [Migrate] to ensure the components table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres gateway: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetComponent implements [gateway.Gateway]. A missing row maps to
// [gateway.ErrComponentNotFound].
func (s *Store) GetComponent(ctx context.Context, entityID, componentType string) (gateway.Component, error) {
	const q = `
		SELECT data
		FROM   components
		WHERE  entity_id = $1 AND component_type = $2`

	var data map[string]any
	err := s.pool.QueryRow(ctx, q, entityID, componentType).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q of entity %q", gateway.ErrComponentNotFound, componentType, entityID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: get component %q of %q: %w", componentType, entityID, err)
	}
	return gateway.Component(data), nil
}

// SetComponent implements [gateway.Gateway]. It upserts the component row.
func (s *Store) SetComponent(ctx context.Context, entityID, componentType string, data gateway.Component) error {
	const q = `
		INSERT INTO components (entity_id, component_type, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (entity_id, component_type)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, entityID, componentType, map[string]any(data)); err != nil {
		return fmt.Errorf("postgres gateway: set component %q of %q: %w", componentType, entityID, err)
	}
	return nil
}

// RemoveComponent deletes the component row if present.
func (s *Store) RemoveComponent(ctx context.Context, entityID, componentType string) error {
	const q = `DELETE FROM components WHERE entity_id = $1 AND component_type = $2`
	if _, err := s.pool.Exec(ctx, q, entityID, componentType); err != nil {
		return fmt.Errorf("postgres gateway: remove component %q of %q: %w", componentType, entityID, err)
	}
	return nil
}

// EntityIDs returns the distinct entity IDs present in storage, sorted.
func (s *Store) EntityIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT entity_id FROM components ORDER BY entity_id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres gateway: list entities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres gateway: scan entity id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres gateway: list entities: %w", err)
	}
	return ids, nil
}
