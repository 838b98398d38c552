package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is safe to re-run.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		idea_id           TEXT NOT NULL,
		name              TEXT NOT NULL,
		mode              TEXT NOT NULL DEFAULT 'development',
		status            TEXT NOT NULL DEFAULT 'planning'
		                  CHECK(status IN ('planning','in_progress','testing','completed','on_hold','cancelled','deleted')),
		workflow_category TEXT NOT NULL DEFAULT '',
		assigned_agents   TEXT NOT NULL DEFAULT '[]',
		version           INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		deleted_at        TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id)`,
	// One live project per idea and user.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_idea_user_live
		ON projects(idea_id, user_id) WHERE status != 'deleted'`,

	`CREATE TABLE IF NOT EXISTS workflows (
		project_id       TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
		id               TEXT NOT NULL,
		current_stage_id TEXT,
		is_custom        INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS workflow_stages (
		project_id       TEXT NOT NULL REFERENCES workflows(project_id) ON DELETE CASCADE,
		stage_id         TEXT NOT NULL,
		order_number     INTEGER NOT NULL CHECK(order_number > 0),
		name             TEXT NOT NULL,
		description      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL DEFAULT 'pending'
		                 CHECK(status IN ('pending','in_progress','completed')),
		expected_outputs TEXT NOT NULL DEFAULT '[]',
		started_at       TEXT,
		completed_at     TEXT,
		PRIMARY KEY (project_id, stage_id),
		UNIQUE (project_id, order_number)
	)`,

	`CREATE TABLE IF NOT EXISTS stage_artifacts (
		project_id  TEXT NOT NULL,
		stage_id    TEXT NOT NULL,
		artifact_id TEXT NOT NULL,
		position    INTEGER NOT NULL,
		type        TEXT NOT NULL,
		name        TEXT NOT NULL,
		content     TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		tokens      INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		PRIMARY KEY (project_id, stage_id, artifact_id),
		FOREIGN KEY (project_id, stage_id)
			REFERENCES workflow_stages(project_id, stage_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id           TEXT PRIMARY KEY,
		aggregate_id TEXT NOT NULL,
		event_name   TEXT NOT NULL,
		payload      TEXT NOT NULL,
		occurred_at  TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		published_at TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_events(published_at, created_at)`,

	`CREATE TABLE IF NOT EXISTS generation_jobs (
		id                 TEXT PRIMARY KEY,
		project_id         TEXT NOT NULL,
		user_id            TEXT NOT NULL,
		kind               TEXT NOT NULL CHECK(kind IN ('report','business_plan')),
		title              TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL
		                   CHECK(status IN ('generating','draft','completed','failed')),
		sections           TEXT NOT NULL DEFAULT '[]',
		error_reason       TEXT NOT NULL DEFAULT '',
		completed_at       TEXT,
		auto_recovered_at  TEXT,
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_generation_jobs_sweep ON generation_jobs(kind, status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_jobs_project ON generation_jobs(project_id)`,
}
