package testutil

import (
	"testing"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/google/uuid"
)

// FixedNow is the reference instant used by fixtures and fixed clocks.
var FixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Project options
type ProjectOption func(*domain.ProjectParams)

func WithIdeaID(id string) ProjectOption {
	return func(p *domain.ProjectParams) {
		p.IdeaID = id
	}
}

func WithUserID(id string) ProjectOption {
	return func(p *domain.ProjectParams) {
		p.UserID = id
	}
}

func WithAgents(agents ...string) ProjectOption {
	return func(p *domain.ProjectParams) {
		p.AssignedAgents = agents
	}
}

func WithCategory(c string) ProjectOption {
	return func(p *domain.ProjectParams) {
		p.WorkflowCategory = c
	}
}

// NewTestProject builds a fresh development project with the default
// workflow, owned by "user-1" unless overridden.
func NewTestProject(t *testing.T, name string, opts ...ProjectOption) *domain.Project {
	t.Helper()
	params := domain.ProjectParams{
		ID:         uuid.New().String(),
		WorkflowID: uuid.New().String(),
		UserID:     "user-1",
		IdeaID:     uuid.New().String(),
		Name:       name,
		Mode:       domain.ModeDevelopment,
	}
	for _, opt := range opts {
		opt(&params)
	}
	p, _, err := domain.NewProject(params, FixedNow)
	if err != nil {
		t.Fatalf("building test project: %v", err)
	}
	return p
}

// Job options
type JobOption func(*domain.GenerationJob)

func WithSections(contents ...string) JobOption {
	return func(j *domain.GenerationJob) {
		for i, c := range contents {
			j.Sections = append(j.Sections, domain.Section{Key: "section-" + string(rune('a'+i)), Content: c})
		}
	}
}

func WithJobStatus(s domain.JobStatus) JobOption {
	return func(j *domain.GenerationJob) {
		j.Status = s
	}
}

// WithUpdatedAt sets both timestamps, for placing a job behind a sweep cutoff.
func WithUpdatedAt(at time.Time) JobOption {
	return func(j *domain.GenerationJob) {
		j.CreatedAt = at
		j.UpdatedAt = at
	}
}

// NewTestJob builds an in-progress generation job last touched at FixedNow.
func NewTestJob(projectID string, kind domain.JobKind, opts ...JobOption) *domain.GenerationJob {
	j := &domain.GenerationJob{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    "user-1",
		Kind:      kind,
		Title:     string(kind) + " draft",
		Status:    kind.InProgressStatus(),
		Sections:  []domain.Section{},
		CreatedAt: FixedNow,
		UpdatedAt: FixedNow,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}
