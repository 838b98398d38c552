package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresGenerationJobRepo implements GenerationJobRepo on PostgreSQL, the
// store shared with the external generator.
type PostgresGenerationJobRepo struct {
	db PgxQuerier
}

func NewPostgresGenerationJobRepo(q PgxQuerier) *PostgresGenerationJobRepo {
	return &PostgresGenerationJobRepo{db: q}
}

func (r *PostgresGenerationJobRepo) Create(ctx context.Context, j *domain.GenerationJob) error {
	sections, err := json.Marshal(nonNilSections(j.Sections))
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	_, err = r.db.Exec(ctx, `INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)`,
		j.ID, j.ProjectID, j.UserID, string(j.Kind), j.Title, string(j.Status), string(sections), j.ErrorReason,
		j.CompletedAt, j.AutoRecoveredAt, j.CreatedAt.UTC(), j.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting generation job: %w", err)
	}
	return nil
}

func (r *PostgresGenerationJobRepo) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	j, err := scanPostgresJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("generation job", id)
	}
	return j, err
}

func (r *PostgresGenerationJobRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationJob, error) {
	rows, err := r.db.Query(ctx, `SELECT `+jobColumns+` FROM generation_jobs
		WHERE project_id = $1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.GenerationJob
	for rows.Next() {
		j, err := scanPostgresJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating generation jobs: %w", err)
	}
	return jobs, nil
}

func (r *PostgresGenerationJobRepo) AppendSection(ctx context.Context, jobID string, s domain.Section, now time.Time) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding section: %w", err)
	}
	tag, err := r.db.Exec(ctx, `UPDATE generation_jobs
		SET sections = sections || jsonb_build_array($1::jsonb),
			updated_at = $2
		WHERE id = $3 AND status IN `+inProgressStatuses,
		string(payload), now.UTC(), jobID,
	)
	if err != nil {
		return fmt.Errorf("appending section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, jobID); err != nil {
			return err
		}
		return fmt.Errorf("%w: generation job %s is finished", domain.ErrInvalidTransition, jobID)
	}
	return nil
}

func (r *PostgresGenerationJobRepo) BulkTransition(ctx context.Context, f domain.JobFilter, tr domain.JobTransition) (int64, error) {
	query, args, err := buildBulkTransition(f, tr, postgresJobDialect)
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transitioning %s jobs: %w", f.Kind, err)
	}
	return tag.RowsAffected(), nil
}

func scanPostgresJob(row pgx.Row) (*domain.GenerationJob, error) {
	var j domain.GenerationJob
	var kind, status string
	var sections []byte
	err := row.Scan(&j.ID, &j.ProjectID, &j.UserID, &kind, &j.Title, &status, &sections, &j.ErrorReason,
		&j.CompletedAt, &j.AutoRecoveredAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning generation job: %w", err)
	}
	j.Kind = domain.JobKind(kind)
	j.Status = domain.JobStatus(status)
	if err := json.Unmarshal(sections, &j.Sections); err != nil {
		return nil, fmt.Errorf("decoding sections: %w", err)
	}
	return &j, nil
}
