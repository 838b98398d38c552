package repository

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

// JobStoreOpener connects to a generation job backend.
type JobStoreOpener func(ctx context.Context) (GenerationJobRepo, io.Closer, error)

// LazyGenerationJobRepo defers opening the job backend until a job is read
// or written, so project commands never connect to it. A failed open is
// retried on the next call.
type LazyGenerationJobRepo struct {
	open JobStoreOpener

	mu     sync.Mutex
	repo   GenerationJobRepo
	closer io.Closer
}

var _ GenerationJobRepo = (*LazyGenerationJobRepo)(nil)

func NewLazyGenerationJobRepo(open JobStoreOpener) *LazyGenerationJobRepo {
	return &LazyGenerationJobRepo{open: open}
}

func (l *LazyGenerationJobRepo) get(ctx context.Context) (GenerationJobRepo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.repo != nil {
		return l.repo, nil
	}
	repo, closer, err := l.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening job store: %w", err)
	}
	l.repo, l.closer = repo, closer
	return repo, nil
}

// Opened reports whether the backend has been connected.
func (l *LazyGenerationJobRepo) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo != nil
}

// Close releases the backend if it was ever opened.
func (l *LazyGenerationJobRepo) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.repo, l.closer = nil, nil
	return err
}

func (l *LazyGenerationJobRepo) Create(ctx context.Context, j *domain.GenerationJob) error {
	repo, err := l.get(ctx)
	if err != nil {
		return err
	}
	return repo.Create(ctx, j)
}

func (l *LazyGenerationJobRepo) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	repo, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

func (l *LazyGenerationJobRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationJob, error) {
	repo, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return repo.ListByProject(ctx, projectID)
}

func (l *LazyGenerationJobRepo) AppendSection(ctx context.Context, jobID string, s domain.Section, now time.Time) error {
	repo, err := l.get(ctx)
	if err != nil {
		return err
	}
	return repo.AppendSection(ctx, jobID, s, now)
}

func (l *LazyGenerationJobRepo) BulkTransition(ctx context.Context, f domain.JobFilter, tr domain.JobTransition) (int64, error) {
	repo, err := l.get(ctx)
	if err != nil {
		return 0, err
	}
	return repo.BulkTransition(ctx, f, tr)
}
