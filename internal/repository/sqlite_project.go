package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
)

// SQLiteProjectRepo implements ProjectRepo using a SQLite database.
type SQLiteProjectRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(conn db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: conn}
}

const projectColumns = `id, user_id, idea_id, name, mode, status, workflow_category, assigned_agents,
	version, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Save writes the project row and replaces its workflow rows. It should run
// inside a transaction so the stage rewrite is atomic.
func (r *SQLiteProjectRepo) Save(ctx context.Context, p *domain.Project) error {
	agents, err := json.Marshal(nonNilStrings(p.AssignedAgents))
	if err != nil {
		return fmt.Errorf("encoding assigned agents: %w", err)
	}

	var nextVersion int64
	if p.Version == 0 {
		nextVersion = 1
		query := `INSERT INTO projects (` + projectColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := r.db.ExecContext(ctx, query,
			p.ID, p.UserID, p.IdeaID, p.Name, string(p.Mode), string(p.Status),
			p.WorkflowCategory, string(agents), nextVersion,
			formatTime(p.CreatedAt), formatTime(p.UpdatedAt), nullableTimeToString(p.DeletedAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("project for idea %s already exists: %w", p.IdeaID, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("inserting project: %w", err)
		}
	} else {
		nextVersion = p.Version + 1
		query := `UPDATE projects SET idea_id = ?, name = ?, status = ?, workflow_category = ?,
			assigned_agents = ?, version = ?, updated_at = ?, deleted_at = ?
			WHERE id = ? AND version = ?`
		res, err := r.db.ExecContext(ctx, query,
			p.IdeaID, p.Name, string(p.Status), p.WorkflowCategory,
			string(agents), nextVersion, formatTime(p.UpdatedAt), nullableTimeToString(p.DeletedAt),
			p.ID, p.Version,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("project for idea %s already exists: %w", p.IdeaID, domain.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating project: %w", err)
		}
		if n == 0 {
			return r.missingOrStale(ctx, p.ID)
		}
	}

	if err := r.saveWorkflow(ctx, p); err != nil {
		return err
	}
	p.Version = nextVersion
	return nil
}

func (r *SQLiteProjectRepo) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking project: %w", err)
	}
	if !exists {
		return notFound("project", id)
	}
	return fmt.Errorf("project %s was modified concurrently: %w", id, domain.ErrConflict)
}

func (r *SQLiteProjectRepo) saveWorkflow(ctx context.Context, p *domain.Project) error {
	w := p.Workflow
	if w == nil {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE project_id = ?`, p.ID); err != nil {
			return fmt.Errorf("deleting workflow: %w", err)
		}
		return nil
	}

	var current any
	if w.CurrentStageID != "" {
		current = w.CurrentStageID
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO workflows (project_id, id, current_stage_id, is_custom, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			id = excluded.id,
			current_stage_id = excluded.current_stage_id,
			is_custom = excluded.is_custom,
			updated_at = excluded.updated_at`,
		p.ID, w.ID, current, boolToInt(w.IsCustom), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving workflow: %w", err)
	}

	// Stages are rewritten wholesale; artifacts go with them via ON DELETE CASCADE.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM workflow_stages WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing workflow stages: %w", err)
	}
	for _, s := range w.OrderedStages() {
		outputs, err := json.Marshal(s.ExpectedOutputs)
		if err != nil {
			return fmt.Errorf("encoding expected outputs for stage %s: %w", s.ID, err)
		}
		_, err = r.db.ExecContext(ctx, `INSERT INTO workflow_stages
			(project_id, stage_id, order_number, name, description, status, expected_outputs, started_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, s.ID, s.OrderNumber, s.Name, s.Description, string(s.Status), string(outputs),
			nullableTimeToString(s.StartedAt), nullableTimeToString(s.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting stage %s: %w", s.ID, err)
		}
		for pos, a := range s.Artifacts {
			_, err := r.db.ExecContext(ctx, `INSERT INTO stage_artifacts
				(project_id, stage_id, artifact_id, position, type, name, content, source, tokens, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				p.ID, s.ID, a.ID, pos, a.Type, a.Name, a.Content, a.Source, a.Tokens, formatTime(a.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("inserting artifact %s: %w", a.ID, err)
			}
		}
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("project", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadWorkflow(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteProjectRepo) ExistsByIdeaID(ctx context.Context, ideaID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE idea_id = ? AND user_id = ? AND status != 'deleted')`,
		ideaID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking project for idea: %w", err)
	}
	return exists, nil
}

func (r *SQLiteProjectRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n == 0 {
		return notFound("project", id)
	}
	return nil
}

func (r *SQLiteProjectRepo) ListByUser(ctx context.Context, userID string, includeDeleted bool) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND status != 'deleted'`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	rows.Close()

	// Workflows are loaded after the cursor is closed; an in-memory database
	// has a single connection.
	for _, p := range projects {
		if err := r.loadWorkflow(ctx, p); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (r *SQLiteProjectRepo) CountByStatus(ctx context.Context, userID string) (map[domain.ProjectStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM projects WHERE user_id = ? GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("counting projects: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ProjectStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning project count: %w", err)
		}
		counts[domain.ProjectStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project counts: %w", err)
	}
	return counts, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var mode, status, agents, createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(
		&p.ID, &p.UserID, &p.IdeaID, &p.Name, &mode, &status, &p.WorkflowCategory, &agents,
		&p.Version, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.Mode = domain.ProjectMode(mode)
	p.Status = domain.ProjectStatus(status)
	if err := json.Unmarshal([]byte(agents), &p.AssignedAgents); err != nil {
		return nil, fmt.Errorf("decoding assigned agents: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	p.DeletedAt = parseNullableTime(deletedAt)
	return &p, nil
}

func (r *SQLiteProjectRepo) loadWorkflow(ctx context.Context, p *domain.Project) error {
	var w domain.Workflow
	var current sql.NullString
	var isCustom int
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, current_stage_id, is_custom, created_at, updated_at FROM workflows WHERE project_id = ?`, p.ID,
	).Scan(&w.ID, &current, &isCustom, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		p.Workflow = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading workflow: %w", err)
	}
	w.CurrentStageID = current.String
	w.IsCustom = intToBool(isCustom)
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("parsing workflow created_at: %w", err)
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return fmt.Errorf("parsing workflow updated_at: %w", err)
	}

	stages, err := r.loadStages(ctx, p.ID)
	if err != nil {
		return err
	}
	artifacts, err := r.loadArtifacts(ctx, p.ID)
	if err != nil {
		return err
	}
	for i := range stages {
		if as, ok := artifacts[stages[i].ID]; ok {
			stages[i].Artifacts = as
		}
	}
	w.Stages = stages
	p.Workflow = &w
	return nil
}

func (r *SQLiteProjectRepo) loadStages(ctx context.Context, projectID string) ([]domain.Stage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stage_id, order_number, name, description, status,
		expected_outputs, started_at, completed_at
		FROM workflow_stages WHERE project_id = ? ORDER BY order_number`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing stages: %w", err)
	}
	defer rows.Close()

	stages := []domain.Stage{}
	for rows.Next() {
		var s domain.Stage
		var status, outputs string
		var startedAt, completedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.OrderNumber, &s.Name, &s.Description, &status,
			&outputs, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		s.Status = domain.StageStatus(status)
		if err := json.Unmarshal([]byte(outputs), &s.ExpectedOutputs); err != nil {
			return nil, fmt.Errorf("decoding expected outputs for stage %s: %w", s.ID, err)
		}
		s.StartedAt = parseNullableTime(startedAt)
		s.CompletedAt = parseNullableTime(completedAt)
		s.Artifacts = []domain.Artifact{}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stages: %w", err)
	}
	return stages, nil
}

func (r *SQLiteProjectRepo) loadArtifacts(ctx context.Context, projectID string) (map[string][]domain.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stage_id, artifact_id, type, name, content, source, tokens, created_at
		FROM stage_artifacts WHERE project_id = ? ORDER BY stage_id, position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Artifact)
	for rows.Next() {
		var stageID, createdAt string
		var a domain.Artifact
		if err := rows.Scan(&stageID, &a.ID, &a.Type, &a.Name, &a.Content, &a.Source, &a.Tokens, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing artifact created_at: %w", err)
		}
		out[stageID] = append(out[stageID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating artifacts: %w", err)
	}
	return out, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
