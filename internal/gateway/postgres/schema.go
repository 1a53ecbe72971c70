// Package postgres provides a PostgreSQL-backed [gateway.Gateway]. Component
// data is stored as JSONB, one row per (entity, component type) pair, so the
// resolver can run against a persistent world shared by several processes.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	data, err := store.GetComponent(ctx, "npc:villager_01", "clothing:equipment")
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlComponents = `
CREATE TABLE IF NOT EXISTS components (
    entity_id       TEXT         NOT NULL,
    component_type  TEXT         NOT NULL,
    data            JSONB        NOT NULL DEFAULT '{}',
    updated_at      TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (entity_id, component_type)
);

CREATE INDEX IF NOT EXISTS idx_components_type
    ON components (component_type);
`

// Migrate creates the components table and its indexes if they do not exist.
// It is idempotent and safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlComponents); err != nil {
		return fmt.Errorf("postgres gateway: migrate components: %w", err)
	}
	return nil
}
