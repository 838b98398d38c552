package domain

type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
)

// Valid reports whether s is one of the known stage statuses.
func (s StageStatus) Valid() bool {
	switch s {
	case StagePending, StageInProgress, StageCompleted:
		return true
	}
	return false
}

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusTesting    ProjectStatus = "testing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
	ProjectStatusDeleted    ProjectStatus = "deleted"
)

// ValidProjectStatuses is the canonical set of accepted project status strings.
var ValidProjectStatuses = map[ProjectStatus]bool{
	ProjectStatusPlanning:   true,
	ProjectStatusInProgress: true,
	ProjectStatusTesting:    true,
	ProjectStatusCompleted:  true,
	ProjectStatusOnHold:     true,
	ProjectStatusCancelled:  true,
	ProjectStatusDeleted:    true,
}

type ProjectMode string

const (
	ModeDevelopment ProjectMode = "development"
)

type JobKind string

const (
	JobReport       JobKind = "report"
	JobBusinessPlan JobKind = "business_plan"
)

type JobStatus string

const (
	// Reports are written with JobGenerating while the generator runs;
	// business plans sit in JobDraft until their chapters are finalised.
	JobGenerating JobStatus = "generating"
	JobDraft      JobStatus = "draft"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// InProgressStatus returns the status a job of this kind holds while the
// generator is still working on it.
func (k JobKind) InProgressStatus() JobStatus {
	if k == JobBusinessPlan {
		return JobDraft
	}
	return JobGenerating
}

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	return k == JobReport || k == JobBusinessPlan
}
