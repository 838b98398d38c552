package domain

import (
	"fmt"
	"strings"
	"time"
)

// Project is the aggregate root for a user's idea. A development-mode project
// owns exactly one Workflow; a deleted project accepts no further mutation.
type Project struct {
	ID               string
	UserID           string
	IdeaID           string
	Name             string
	Mode             ProjectMode
	Status           ProjectStatus
	Workflow         *Workflow
	WorkflowCategory string
	AssignedAgents   []string
	// Version is bumped on every successful save and guards concurrent writers.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type ProjectParams struct {
	ID               string
	WorkflowID       string
	UserID           string
	IdeaID           string
	Name             string
	Mode             ProjectMode
	WorkflowCategory string
	AssignedAgents   []string
}

// ProjectUpdate is a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name             *string
	Status           *ProjectStatus
	IdeaID           *string
	WorkflowCategory *string
	AssignedAgents   *[]string
}

// NewProject creates a project in planning status. Development-mode projects
// get the default workflow.
func NewProject(params ProjectParams, now time.Time) (*Project, ProjectCreated, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"id", params.ID},
		{"user id", params.UserID},
		{"idea id", params.IdeaID},
		{"name", params.Name},
		{"mode", string(params.Mode)},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, ProjectCreated{}, validationf("project %s required", strings.Join(missing, ", "))
	}
	if params.Mode != ModeDevelopment {
		return nil, ProjectCreated{}, fmt.Errorf("%w: %q", ErrUnsupportedMode, params.Mode)
	}

	p := &Project{
		ID:               params.ID,
		UserID:           params.UserID,
		IdeaID:           params.IdeaID,
		Name:             strings.TrimSpace(params.Name),
		Mode:             params.Mode,
		Status:           ProjectStatusPlanning,
		WorkflowCategory: params.WorkflowCategory,
		AssignedAgents:   append([]string(nil), params.AssignedAgents...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	workflowID := params.WorkflowID
	if workflowID == "" {
		workflowID = params.ID
	}
	p.Workflow = NewDefaultWorkflow(workflowID, now)

	return p, ProjectCreated{
		ProjectID: p.ID,
		IdeaID:    p.IdeaID,
		Name:      p.Name,
		Mode:      p.Mode,
		CreatedAt: now,
	}, nil
}

// IsDeleted reports whether the project has been soft-deleted.
func (p *Project) IsDeleted() bool {
	return p.Status == ProjectStatusDeleted
}

// AuthorizeOwner fails with ErrForbidden unless userID owns the project.
func (p *Project) AuthorizeOwner(userID string) error {
	if userID == "" || p.UserID != userID {
		return fmt.Errorf("%w: project %s", ErrForbidden, p.ID)
	}
	return nil
}

// Snapshot captures the fields Update can change.
func (p *Project) Snapshot() ProjectSnapshot {
	return ProjectSnapshot{
		Name:             p.Name,
		IdeaID:           p.IdeaID,
		Status:           p.Status,
		WorkflowCategory: p.WorkflowCategory,
		AssignedAgents:   append([]string(nil), p.AssignedAgents...),
	}
}

// Update applies the supplied fields. Nothing changes if any field is
// invalid. The deleted status is reachable only through Delete.
func (p *Project) Update(u ProjectUpdate, now time.Time) (ProjectUpdated, error) {
	if p.IsDeleted() {
		return ProjectUpdated{}, ErrProjectDeleted
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return ProjectUpdated{}, validationf("project name cannot be empty")
	}
	if u.IdeaID != nil && strings.TrimSpace(*u.IdeaID) == "" {
		return ProjectUpdated{}, validationf("project idea id cannot be empty")
	}
	if u.Status != nil {
		if !ValidProjectStatuses[*u.Status] {
			return ProjectUpdated{}, validationf("unknown project status %q", *u.Status)
		}
		if *u.Status == ProjectStatusDeleted {
			return ProjectUpdated{}, transitionf("use delete to remove a project")
		}
	}

	before := p.Snapshot()
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.IdeaID != nil {
		p.IdeaID = *u.IdeaID
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.WorkflowCategory != nil {
		p.WorkflowCategory = *u.WorkflowCategory
	}
	if u.AssignedAgents != nil {
		p.AssignedAgents = append([]string(nil), (*u.AssignedAgents)...)
	}
	p.UpdatedAt = now

	return ProjectUpdated{
		ProjectID:   p.ID,
		OldSnapshot: before,
		NewSnapshot: p.Snapshot(),
		UpdatedAt:   now,
	}, nil
}

// Delete soft-deletes the project. The row stays until purged.
func (p *Project) Delete(now time.Time) (ProjectDeleted, error) {
	if p.IsDeleted() {
		return ProjectDeleted{}, ErrProjectDeleted
	}
	p.Status = ProjectStatusDeleted
	p.DeletedAt = &now
	p.UpdatedAt = now
	return ProjectDeleted{ProjectID: p.ID, Name: p.Name, DeletedAt: now}, nil
}

// CustomizeWorkflow replaces the workflow's stages. Only development-mode
// projects support it.
func (p *Project) CustomizeWorkflow(specs []StageSpec, now time.Time) ([]DroppedArtifact, error) {
	if p.Mode != ModeDevelopment {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, p.Mode)
	}
	w, err := p.mutableWorkflow()
	if err != nil {
		return nil, err
	}
	dropped, err := w.CustomizeStages(specs, now)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	return dropped, nil
}

func (p *Project) AdvanceStage(now time.Time) (*Stage, error) {
	return p.stageOp(now, (*Workflow).MoveToNextStage)
}

func (p *Project) JumpToStage(stageID string, now time.Time) (*Stage, error) {
	return p.stageOp(now, func(w *Workflow, now time.Time) (*Stage, error) {
		return w.MoveToStage(stageID, now)
	})
}

func (p *Project) StartCurrentStage(now time.Time) (*Stage, error) {
	return p.stageOp(now, (*Workflow).StartCurrentStage)
}

func (p *Project) CompleteCurrentStage(now time.Time) (*Stage, error) {
	return p.stageOp(now, (*Workflow).CompleteCurrentStage)
}

// AddArtifact attaches an artifact to the named stage.
func (p *Project) AddArtifact(stageID string, in ArtifactInput, now time.Time) (Artifact, error) {
	w, err := p.mutableWorkflow()
	if err != nil {
		return Artifact{}, err
	}
	stage, err := w.Stage(stageID)
	if err != nil {
		return Artifact{}, err
	}
	a, err := stage.AddArtifact(in, now)
	if err != nil {
		return Artifact{}, err
	}
	w.UpdatedAt = now
	p.UpdatedAt = now
	return a, nil
}

// RemoveArtifact detaches an artifact. It reports false when the artifact
// was not attached.
func (p *Project) RemoveArtifact(stageID, artifactID string, now time.Time) (bool, error) {
	w, err := p.mutableWorkflow()
	if err != nil {
		return false, err
	}
	stage, err := w.Stage(stageID)
	if err != nil {
		return false, err
	}
	if !stage.RemoveArtifact(artifactID) {
		return false, nil
	}
	w.UpdatedAt = now
	p.UpdatedAt = now
	return true, nil
}

// Validate checks aggregate invariants after load or mutation.
func (p *Project) Validate() error {
	if p.Mode == ModeDevelopment && p.Workflow == nil {
		return fmt.Errorf("%w: development project %s", ErrNoWorkflow, p.ID)
	}
	if p.Workflow != nil {
		return p.Workflow.Validate()
	}
	return nil
}

func (p *Project) mutableWorkflow() (*Workflow, error) {
	if p.IsDeleted() {
		return nil, ErrProjectDeleted
	}
	if p.Workflow == nil {
		return nil, ErrNoWorkflow
	}
	return p.Workflow, nil
}

func (p *Project) stageOp(now time.Time, op func(*Workflow, time.Time) (*Stage, error)) (*Stage, error) {
	w, err := p.mutableWorkflow()
	if err != nil {
		return nil, err
	}
	stage, err := op(w, now)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	return stage, nil
}
