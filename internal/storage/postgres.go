package storage

import (
	"context"
	"fmt"

	"github.com/KevinKickass/pointc/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, cfg config.DatabaseConfig) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

func (p *PostgresClient) Close() {
	p.pool.Close()
}

func (p *PostgresClient) Pool() *pgxpool.Pool {
	return p.pool
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS builds (
	id            UUID PRIMARY KEY,
	compiled_at   TIMESTAMPTZ NOT NULL,
	max_modules   INTEGER NOT NULL,
	sheet_count   INTEGER NOT NULL,
	task_count    INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	settings      JSONB NOT NULL,
	result        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS build_tasks (
	build_id  UUID NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	sheet     TEXT NOT NULL,
	module    INTEGER NOT NULL,
	timing_ms INTEGER NOT NULL,
	PRIMARY KEY (build_id, name)
);

CREATE INDEX IF NOT EXISTS builds_compiled_at_idx ON builds (compiled_at DESC);
`

// EnsureSchema creates the build tables when they do not exist.
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
