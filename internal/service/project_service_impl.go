package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/alexanderramin/ideaflow/internal/repository"
	"github.com/google/uuid"
)

type projectService struct {
	projects repository.ProjectRepo
	uow      db.UnitOfWork
	now      func() time.Time
	observer UseCaseObserver
}

// NewProjectService reads through projects and runs every mutation inside
// uow, writing the aggregate and its events in the same transaction.
func NewProjectService(projects repository.ProjectRepo, uow db.UnitOfWork, opts ...Option) ProjectService {
	o := buildOptions(opts)
	return &projectService{
		projects: projects,
		uow:      uow,
		now:      o.now,
		observer: o.observer,
	}
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (p *domain.Project, err error) {
	startedAt := time.Now()
	fields := map[string]any{"idea_id": in.IdeaID}
	defer func() { observe(ctx, s.observer, "create-project", startedAt, fields, err) }()

	if err = validateInput(in); err != nil {
		return nil, err
	}
	var created domain.ProjectCreated
	p, created, err = domain.NewProject(domain.ProjectParams{
		ID:               uuid.New().String(),
		WorkflowID:       uuid.New().String(),
		UserID:           in.UserID,
		IdeaID:           in.IdeaID,
		Name:             in.Name,
		Mode:             in.Mode,
		WorkflowCategory: in.WorkflowCategory,
		AssignedAgents:   in.AssignedAgents,
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txProjects := repository.NewSQLiteProjectRepo(tx)
		exists, err := txProjects.ExistsByIdeaID(ctx, p.IdeaID, p.UserID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: idea %s already has a live project", domain.ErrConflict, p.IdeaID)
		}
		if err := txProjects.Save(ctx, p); err != nil {
			return err
		}
		return repository.NewSQLiteOutboxRepo(tx).Append(ctx, created)
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	fields["project_id"] = p.ID
	return p, nil
}

func (s *projectService) Get(ctx context.Context, userID, id string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.AuthorizeOwner(userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context, userID string, includeDeleted bool) ([]*domain.Project, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	return s.projects.ListByUser(ctx, userID, includeDeleted)
}

func (s *projectService) Update(ctx context.Context, userID, id string, u domain.ProjectUpdate) (p *domain.Project, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id}
	defer func() { observe(ctx, s.observer, "update-project", startedAt, fields, err) }()

	return s.mutate(ctx, userID, id, func(p *domain.Project, now time.Time) ([]domain.Event, error) {
		ev, err := p.Update(u, now)
		if err != nil {
			return nil, err
		}
		return []domain.Event{ev}, nil
	})
}

func (s *projectService) CustomizeWorkflow(ctx context.Context, userID, id string, specs []domain.StageSpec) (res *CustomizeResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id, "stage_count": len(specs)}
	defer func() { observe(ctx, s.observer, "customize-workflow", startedAt, fields, err) }()

	var dropped []domain.DroppedArtifact
	p, err := s.mutate(ctx, userID, id, func(p *domain.Project, now time.Time) ([]domain.Event, error) {
		var err error
		dropped, err = p.CustomizeWorkflow(specs, now)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	fields["dropped_artifacts"] = len(dropped)
	return &CustomizeResult{Project: p, Dropped: dropped}, nil
}

func (s *projectService) AdvanceStage(ctx context.Context, userID, id string) (*StageResult, error) {
	return s.stageTransition(ctx, "advance-stage", userID, id, (*domain.Project).AdvanceStage)
}

func (s *projectService) JumpToStage(ctx context.Context, userID, id, stageID string) (*StageResult, error) {
	return s.stageTransition(ctx, "jump-to-stage", userID, id, func(p *domain.Project, now time.Time) (*domain.Stage, error) {
		return p.JumpToStage(stageID, now)
	})
}

func (s *projectService) StartCurrentStage(ctx context.Context, userID, id string) (*StageResult, error) {
	return s.stageTransition(ctx, "start-stage", userID, id, (*domain.Project).StartCurrentStage)
}

func (s *projectService) CompleteCurrentStage(ctx context.Context, userID, id string) (*StageResult, error) {
	return s.stageTransition(ctx, "complete-stage", userID, id, (*domain.Project).CompleteCurrentStage)
}

func (s *projectService) stageTransition(
	ctx context.Context,
	name, userID, id string,
	op func(*domain.Project, time.Time) (*domain.Stage, error),
) (res *StageResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id}
	defer func() { observe(ctx, s.observer, name, startedAt, fields, err) }()

	var stage domain.Stage
	p, err := s.mutate(ctx, userID, id, func(p *domain.Project, now time.Time) ([]domain.Event, error) {
		st, err := op(p, now)
		if err != nil {
			return nil, err
		}
		stage = *st
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	fields["stage_id"] = stage.ID
	fields["stage_status"] = string(stage.Status)
	return &StageResult{Project: p, Stage: stage}, nil
}

func (s *projectService) AddArtifact(ctx context.Context, userID, id string, in AddArtifactInput) (a domain.Artifact, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id, "stage_id": in.StageID}
	defer func() { observe(ctx, s.observer, "add-artifact", startedAt, fields, err) }()

	if err = validateInput(in); err != nil {
		return domain.Artifact{}, err
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	_, err = s.mutate(ctx, userID, id, func(p *domain.Project, now time.Time) ([]domain.Event, error) {
		var err error
		a, err = p.AddArtifact(in.StageID, domain.ArtifactInput{
			ID:      in.ID,
			Type:    in.Type,
			Name:    in.Name,
			Content: in.Content,
			Source:  in.Source,
			Tokens:  in.Tokens,
		}, now)
		return nil, err
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	fields["artifact_id"] = a.ID
	return a, nil
}

// RemoveArtifact skips the write when nothing was attached under artifactID.
func (s *projectService) RemoveArtifact(ctx context.Context, userID, id, stageID, artifactID string) (removed bool, err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id, "stage_id": stageID, "artifact_id": artifactID}
	defer func() { observe(ctx, s.observer, "remove-artifact", startedAt, fields, err) }()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txProjects := repository.NewSQLiteProjectRepo(tx)
		p, err := s.loadOwned(ctx, txProjects, userID, id)
		if err != nil {
			return err
		}
		removed, err = p.RemoveArtifact(stageID, artifactID, s.now().UTC())
		if err != nil || !removed {
			return err
		}
		return txProjects.Save(ctx, p)
	})
	if err != nil {
		return false, err
	}
	fields["removed"] = removed
	return removed, nil
}

func (s *projectService) Delete(ctx context.Context, userID, id string) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id}
	defer func() { observe(ctx, s.observer, "delete-project", startedAt, fields, err) }()

	_, err = s.mutate(ctx, userID, id, func(p *domain.Project, now time.Time) ([]domain.Event, error) {
		ev, err := p.Delete(now)
		if err != nil {
			return nil, err
		}
		return []domain.Event{ev}, nil
	})
	return err
}

func (s *projectService) Purge(ctx context.Context, userID, id string) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"project_id": id}
	defer func() { observe(ctx, s.observer, "purge-project", startedAt, fields, err) }()

	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txProjects := repository.NewSQLiteProjectRepo(tx)
		p, err := s.loadOwned(ctx, txProjects, userID, id)
		if err != nil {
			return err
		}
		if !p.IsDeleted() {
			return fmt.Errorf("%w: project %s must be deleted before it is purged", domain.ErrInvalidTransition, id)
		}
		return txProjects.Delete(ctx, id)
	})
}

func (s *projectService) Stats(ctx context.Context, userID string) (*ProjectStats, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrValidation)
	}
	counts, err := s.projects.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &ProjectStats{ByStatus: counts}
	for status, n := range counts {
		stats.Total += n
		if status != domain.ProjectStatusDeleted {
			stats.Live += n
		}
	}
	return stats, nil
}

// mutate loads the project inside a transaction, checks ownership, applies
// fn and saves the result together with the events fn returns. Nothing is
// written if any step fails.
func (s *projectService) mutate(
	ctx context.Context,
	userID, id string,
	fn func(p *domain.Project, now time.Time) ([]domain.Event, error),
) (*domain.Project, error) {
	var out *domain.Project
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txProjects := repository.NewSQLiteProjectRepo(tx)
		p, err := s.loadOwned(ctx, txProjects, userID, id)
		if err != nil {
			return err
		}
		events, err := fn(p, s.now().UTC())
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := txProjects.Save(ctx, p); err != nil {
			return err
		}
		outbox := repository.NewSQLiteOutboxRepo(tx)
		for _, ev := range events {
			if err := outbox.Append(ctx, ev); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *projectService) loadOwned(ctx context.Context, projects repository.ProjectRepo, userID, id string) (*domain.Project, error) {
	p, err := projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.AuthorizeOwner(userID); err != nil {
		return nil, err
	}
	return p, nil
}
