package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

// ProjectRepo persists the Project aggregate together with its workflow.
// Stage order is stored explicitly and reads always rebuild it exactly.
type ProjectRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// Save inserts a new project (Version 0) or updates an existing one if
	// its stored version still matches, returning domain.ErrConflict if not.
	Save(ctx context.Context, p *domain.Project) error
	ExistsByIdeaID(ctx context.Context, ideaID, userID string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, includeDeleted bool) ([]*domain.Project, error)
	CountByStatus(ctx context.Context, userID string) (map[domain.ProjectStatus]int, error)
}

// OutboxRecord is a domain event waiting to be published.
type OutboxRecord struct {
	ID          string
	AggregateID string
	EventName   string
	Payload     []byte
	OccurredAt  time.Time
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type OutboxRepo interface {
	Append(ctx context.Context, ev domain.Event) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// GenerationJobRepo is the store of asynchronously generated reports and
// business plans.
type GenerationJobRepo interface {
	Create(ctx context.Context, j *domain.GenerationJob) error
	GetByID(ctx context.Context, id string) (*domain.GenerationJob, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationJob, error)
	// AppendSection adds a section to a job that is still in progress.
	AppendSection(ctx context.Context, jobID string, s domain.Section, now time.Time) error
	// BulkTransition applies tr to every job matching f in one filtered
	// update and returns the number of rows changed.
	BulkTransition(ctx context.Context, f domain.JobFilter, tr domain.JobTransition) (int64, error)
}

var (
	_ ProjectRepo       = (*SQLiteProjectRepo)(nil)
	_ OutboxRepo        = (*SQLiteOutboxRepo)(nil)
	_ GenerationJobRepo = (*SQLiteGenerationJobRepo)(nil)
	_ GenerationJobRepo = (*PostgresGenerationJobRepo)(nil)
)
