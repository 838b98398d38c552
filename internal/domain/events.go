package domain

import "time"

// Event names as written to the outbox.
const (
	EventProjectCreated = "project.created"
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
)

// Event is a fact produced by a Project mutator. Mutators return events;
// callers persist them alongside the aggregate.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

type ProjectCreated struct {
	ProjectID string      `json:"projectId"`
	IdeaID    string      `json:"ideaId"`
	Name      string      `json:"name"`
	Mode      ProjectMode `json:"mode"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (e ProjectCreated) EventName() string     { return EventProjectCreated }
func (e ProjectCreated) AggregateID() string   { return e.ProjectID }
func (e ProjectCreated) OccurredAt() time.Time { return e.CreatedAt }

// ProjectSnapshot is the mutable surface of a project captured before and
// after an update.
type ProjectSnapshot struct {
	Name             string        `json:"name"`
	IdeaID           string        `json:"ideaId"`
	Status           ProjectStatus `json:"status"`
	WorkflowCategory string        `json:"workflowCategory,omitempty"`
	AssignedAgents   []string      `json:"assignedAgents,omitempty"`
}

type ProjectUpdated struct {
	ProjectID   string          `json:"projectId"`
	OldSnapshot ProjectSnapshot `json:"oldSnapshot"`
	NewSnapshot ProjectSnapshot `json:"newSnapshot"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (e ProjectUpdated) EventName() string     { return EventProjectUpdated }
func (e ProjectUpdated) AggregateID() string   { return e.ProjectID }
func (e ProjectUpdated) OccurredAt() time.Time { return e.UpdatedAt }

type ProjectDeleted struct {
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e ProjectDeleted) EventName() string     { return EventProjectDeleted }
func (e ProjectDeleted) AggregateID() string   { return e.ProjectID }
func (e ProjectDeleted) OccurredAt() time.Time { return e.DeletedAt }
