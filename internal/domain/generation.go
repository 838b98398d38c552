package domain

import (
	"strings"
	"time"
)

// AutoFailReason is recorded on jobs the sweeper gives up on.
const AutoFailReason = "generation timed out, auto-marked failed"

// Section is one chapter of a report or business plan.
type Section struct {
	Key     string `json:"key"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// GenerationJob is a report or business plan written asynchronously by the
// generator. The sweeper, not the job itself, guarantees it never stays in
// its in-progress status forever.
type GenerationJob struct {
	ID              string
	ProjectID       string
	UserID          string
	Kind            JobKind
	Title           string
	Status          JobStatus
	Sections        []Section
	ErrorReason     string
	CompletedAt     *time.Time
	AutoRecoveredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewGenerationJob returns a job in the in-progress status for its kind.
func NewGenerationJob(id, projectID, userID string, kind JobKind, title string, now time.Time) (*GenerationJob, error) {
	if !kind.Valid() {
		return nil, validationf("unknown job kind %q", kind)
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(projectID) == "" || strings.TrimSpace(userID) == "" {
		return nil, validationf("job id, project id and user id are required")
	}
	return &GenerationJob{
		ID:        id,
		ProjectID: projectID,
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Status:    kind.InProgressStatus(),
		Sections:  []Section{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PopulatedSections counts sections with non-blank content.
func (j *GenerationJob) PopulatedSections() int {
	return CountPopulated(j.Sections)
}

// InProgress reports whether the job still awaits a terminal write.
func (j *GenerationJob) InProgress() bool {
	return j.Status == j.Kind.InProgressStatus()
}

// CountPopulated counts sections with non-blank content.
func CountPopulated(sections []Section) int {
	n := 0
	for _, s := range sections {
		if strings.TrimSpace(s.Content) != "" {
			n++
		}
	}
	return n
}

// ContentPresence narrows a bulk transition by whether any section has
// content.
type ContentPresence int

const (
	ContentAny ContentPresence = iota
	ContentPresent
	ContentAbsent
)

// JobFilter selects jobs for a bulk transition. All set fields must match.
type JobFilter struct {
	Kind          JobKind
	Status        JobStatus
	UpdatedBefore time.Time
	Content       ContentPresence
}

// JobTransition is the update applied to every job a filter matches. Nil
// pointer fields are left untouched.
type JobTransition struct {
	Status          JobStatus
	ErrorReason     *string
	CompletedAt     *time.Time
	AutoRecoveredAt *time.Time
	UpdatedAt       time.Time
}
