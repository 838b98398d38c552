package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
)

// SQLiteGenerationJobRepo implements GenerationJobRepo on SQLite.
type SQLiteGenerationJobRepo struct {
	db db.DBTX
}

func NewSQLiteGenerationJobRepo(conn db.DBTX) *SQLiteGenerationJobRepo {
	return &SQLiteGenerationJobRepo{db: conn}
}

func (r *SQLiteGenerationJobRepo) Create(ctx context.Context, j *domain.GenerationJob) error {
	sections, err := json.Marshal(nonNilSections(j.Sections))
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.ProjectID, j.UserID, string(j.Kind), j.Title, string(j.Status), string(sections), j.ErrorReason,
		nullableTimeToString(j.CompletedAt), nullableTimeToString(j.AutoRecoveredAt),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting generation job: %w", err)
	}
	return nil
}

func (r *SQLiteGenerationJobRepo) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id)
	j, err := scanSQLiteJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("generation job", id)
	}
	return j, err
}

func (r *SQLiteGenerationJobRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationJob, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs
		WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.GenerationJob
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
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

func (r *SQLiteGenerationJobRepo) AppendSection(ctx context.Context, jobID string, s domain.Section, now time.Time) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding section: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE generation_jobs
		SET sections = json_insert(sections, '$[#]', json(?)),
			updated_at = ?
		WHERE id = ? AND status IN `+inProgressStatuses,
		string(payload), formatTime(now), jobID,
	)
	if err != nil {
		return fmt.Errorf("appending section: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("appending section: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, jobID); err != nil {
			return err
		}
		return fmt.Errorf("%w: generation job %s is finished", domain.ErrInvalidTransition, jobID)
	}
	return nil
}

func (r *SQLiteGenerationJobRepo) BulkTransition(ctx context.Context, f domain.JobFilter, tr domain.JobTransition) (int64, error) {
	query, args, err := buildBulkTransition(f, tr, sqliteJobDialect)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transitioning %s jobs: %w", f.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("transitioning %s jobs: %w", f.Kind, err)
	}
	return n, nil
}

func scanSQLiteJob(row rowScanner) (*domain.GenerationJob, error) {
	var j domain.GenerationJob
	var kind, status, sections, createdAt, updatedAt string
	var completedAt, recoveredAt sql.NullString
	err := row.Scan(&j.ID, &j.ProjectID, &j.UserID, &kind, &j.Title, &status, &sections, &j.ErrorReason,
		&completedAt, &recoveredAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning generation job: %w", err)
	}
	j.Kind = domain.JobKind(kind)
	j.Status = domain.JobStatus(status)
	if err := json.Unmarshal([]byte(sections), &j.Sections); err != nil {
		return nil, fmt.Errorf("decoding sections: %w", err)
	}
	j.CompletedAt = parseNullableTime(completedAt)
	j.AutoRecoveredAt = parseNullableTime(recoveredAt)
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &j, nil
}

func nonNilSections(s []domain.Section) []domain.Section {
	if s == nil {
		return []domain.Section{}
	}
	return s
}
