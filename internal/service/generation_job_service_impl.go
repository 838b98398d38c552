package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/google/uuid"
)

type generationJobService struct {
	jobs     repository.GenerationJobRepo
	projects repository.ProjectRepo
	now      func() time.Time
	observer UseCaseObserver
}

// NewGenerationJobService stores jobs in jobs, which may live in a different
// database than projects.
func NewGenerationJobService(jobs repository.GenerationJobRepo, projects repository.ProjectRepo, opts ...Option) GenerationJobService {
	o := buildOptions(opts)
	return &generationJobService{
		jobs:     jobs,
		projects: projects,
		now:      o.now,
		observer: o.observer,
	}
}

func (s *generationJobService) Create(ctx context.Context, in CreateJobInput) (job *domain.GenerationJob, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": in.ProjectID, "kind": string(in.Kind)}
	defer func() { observe(ctx, s.observer, "create-job", startedAt, fields, err) }()

	if err = validateInput(in); err != nil {
		return nil, err
	}
	if err = s.authorizeProject(ctx, in.UserID, in.ProjectID); err != nil {
		return nil, err
	}
	job, err = domain.NewGenerationJob(uuid.New().String(), in.ProjectID, in.UserID, in.Kind, in.Title, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err = s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating generation job: %w", err)
	}
	fields["job_id"] = job.ID
	return job, nil
}

func (s *generationJobService) AppendSection(ctx context.Context, userID, jobID string, in SectionInput) (job *domain.GenerationJob, err error) {
	startedAt := time.Now()
	fields := map[string]any{"job_id": jobID, "section": in.Key}
	defer func() { observe(ctx, s.observer, "append-section", startedAt, fields, err) }()

	if err = validateInput(in); err != nil {
		return nil, err
	}
	job, err = s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, fmt.Errorf("%w: job %s", domain.ErrForbidden, jobID)
	}
	section := domain.Section{Key: in.Key, Title: in.Title, Content: in.Content}
	if err = s.jobs.AppendSection(ctx, jobID, section, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.jobs.GetByID(ctx, jobID)
}

func (s *generationJobService) ListByProject(ctx context.Context, userID, projectID string) ([]*domain.GenerationJob, error) {
	if err := s.authorizeProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.jobs.ListByProject(ctx, projectID)
}

func (s *generationJobService) authorizeProject(ctx context.Context, userID, projectID string) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	return p.AuthorizeOwner(userID)
}
