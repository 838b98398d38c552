package service

import (
	"context"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

// ProjectService is the use-case boundary for projects and their workflows.
// Every call that names a project checks that userID owns it before doing
// anything else.
type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput) (*domain.Project, error)
	Get(ctx context.Context, userID, id string) (*domain.Project, error)
	List(ctx context.Context, userID string, includeDeleted bool) ([]*domain.Project, error)
	Update(ctx context.Context, userID, id string, u domain.ProjectUpdate) (*domain.Project, error)
	CustomizeWorkflow(ctx context.Context, userID, id string, specs []domain.StageSpec) (*CustomizeResult, error)
	AdvanceStage(ctx context.Context, userID, id string) (*StageResult, error)
	JumpToStage(ctx context.Context, userID, id, stageID string) (*StageResult, error)
	StartCurrentStage(ctx context.Context, userID, id string) (*StageResult, error)
	CompleteCurrentStage(ctx context.Context, userID, id string) (*StageResult, error)
	AddArtifact(ctx context.Context, userID, id string, in AddArtifactInput) (domain.Artifact, error)
	RemoveArtifact(ctx context.Context, userID, id, stageID, artifactID string) (bool, error)
	Delete(ctx context.Context, userID, id string) error
	// Purge physically removes a project that was already soft-deleted.
	Purge(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, userID string) (*ProjectStats, error)
}

// GenerationJobService records report and business-plan jobs on behalf of
// the external generator.
type GenerationJobService interface {
	Create(ctx context.Context, in CreateJobInput) (*domain.GenerationJob, error)
	AppendSection(ctx context.Context, userID, jobID string, in SectionInput) (*domain.GenerationJob, error)
	ListByProject(ctx context.Context, userID, projectID string) ([]*domain.GenerationJob, error)
}

type CreateProjectInput struct {
	UserID           string             `validate:"required"`
	IdeaID           string             `validate:"required"`
	Name             string             `validate:"required,max=200"`
	Mode             domain.ProjectMode `validate:"required"`
	WorkflowCategory string             `validate:"max=100"`
	AssignedAgents   []string           `validate:"dive,required"`
}

// AddArtifactInput attaches an artifact to a stage. ID is generated when
// empty.
type AddArtifactInput struct {
	StageID string `validate:"required"`
	ID      string
	Type    string `validate:"required"`
	Name    string `validate:"required,max=200"`
	Content string
	Source  string `validate:"omitempty,oneof=ai user import"`
	Tokens  int    `validate:"gte=0"`
}

type CreateJobInput struct {
	UserID    string         `validate:"required"`
	ProjectID string         `validate:"required"`
	Kind      domain.JobKind `validate:"required,oneof=report business_plan"`
	Title     string         `validate:"max=200"`
}

type SectionInput struct {
	Key     string `validate:"required"`
	Title   string
	Content string
}

// StageResult is the project after a stage transition together with the
// stage that was started or completed.
type StageResult struct {
	Project *domain.Project
	Stage   domain.Stage
}

// CustomizeResult reports the artifacts a stage replacement discarded.
type CustomizeResult struct {
	Project *domain.Project
	Dropped []domain.DroppedArtifact
}

type ProjectStats struct {
	Total    int
	Live     int
	ByStatus map[domain.ProjectStatus]int
}
