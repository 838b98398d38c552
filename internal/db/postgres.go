package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectPostgres establishes a connection pool to the generation-job store
// and verifies it with a ping.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return pool, nil
}

// MigratePostgres creates the generation_jobs table and its sweep index.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range postgresMigrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migration %d: %w", i, err)
		}
	}
	return nil
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS generation_jobs (
		id                 TEXT PRIMARY KEY,
		project_id         TEXT NOT NULL,
		user_id            TEXT NOT NULL,
		kind               TEXT NOT NULL CHECK (kind IN ('report','business_plan')),
		title              TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL
		                   CHECK (status IN ('generating','draft','completed','failed')),
		sections           JSONB NOT NULL DEFAULT '[]'::jsonb,
		error_reason       TEXT NOT NULL DEFAULT '',
		completed_at       TIMESTAMPTZ,
		auto_recovered_at  TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_jobs_sweep ON generation_jobs (kind, status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_jobs_project ON generation_jobs (project_id)`,
}
