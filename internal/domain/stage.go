package domain

import "time"

// ExpectedOutput declares an artifact type a stage is meant to produce.
type ExpectedOutput struct {
	Type            string   `json:"type" yaml:"type"`
	Name            string   `json:"name" yaml:"name"`
	PromptTemplates []string `json:"promptTemplates,omitempty" yaml:"prompt_templates,omitempty"`
}

// Stage is one ordered step of a project's workflow.
//
// Status only moves forward: pending -> in_progress -> completed.
// StartedAt is set when the stage leaves pending, CompletedAt when it
// reaches completed.
type Stage struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	OrderNumber     int              `json:"orderNumber"`
	Description     string           `json:"description,omitempty"`
	Status          StageStatus      `json:"status"`
	Artifacts       []Artifact       `json:"artifacts"`
	ExpectedOutputs []ExpectedOutput `json:"expectedOutputs"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
}

// Start moves the stage to in_progress. Starting a stage that is already in
// progress is a no-op and keeps the original StartedAt.
func (s *Stage) Start(now time.Time) error {
	switch s.Status {
	case StagePending:
		s.Status = StageInProgress
		if s.StartedAt == nil {
			t := now
			s.StartedAt = &t
		}
		return nil
	case StageInProgress:
		return nil
	default:
		return transitionf("cannot start stage %q: status is %s", s.ID, s.Status)
	}
}

// Complete moves an in-progress stage to completed.
func (s *Stage) Complete(now time.Time) error {
	if s.Status != StageInProgress {
		return transitionf("cannot complete stage %q: status is %s", s.ID, s.Status)
	}
	t := now
	s.Status = StageCompleted
	s.CompletedAt = &t
	return nil
}

// AddArtifact validates and appends an artifact, stamping CreatedAt.
func (s *Stage) AddArtifact(in ArtifactInput, now time.Time) (Artifact, error) {
	if err := in.validate(); err != nil {
		return Artifact{}, err
	}
	if _, ok := s.FindArtifact(in.ID); ok {
		return Artifact{}, validationf("artifact %q already exists in stage %q", in.ID, s.ID)
	}
	a := Artifact{
		ID:        in.ID,
		Type:      in.Type,
		Name:      in.Name,
		Content:   in.Content,
		Source:    in.Source,
		Tokens:    in.Tokens,
		CreatedAt: now,
	}
	s.Artifacts = append(s.Artifacts, a)
	return a, nil
}

// RemoveArtifact deletes the artifact with the given id and reports whether
// it was present. A missing id is not an error.
func (s *Stage) RemoveArtifact(artifactID string) bool {
	for i, a := range s.Artifacts {
		if a.ID == artifactID {
			s.Artifacts = append(s.Artifacts[:i:i], s.Artifacts[i+1:]...)
			return true
		}
	}
	return false
}

// FindArtifact returns the artifact with the given id.
func (s *Stage) FindArtifact(artifactID string) (Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.ID == artifactID {
			return a, true
		}
	}
	return Artifact{}, false
}

// IsCompleted reports whether the stage has been completed.
func (s *Stage) IsCompleted() bool {
	return s.Status == StageCompleted
}

func (s Stage) clone() Stage {
	c := s
	if s.Artifacts != nil {
		c.Artifacts = append(make([]Artifact, 0, len(s.Artifacts)), s.Artifacts...)
	}
	if s.ExpectedOutputs != nil {
		c.ExpectedOutputs = make([]ExpectedOutput, len(s.ExpectedOutputs))
		for i, o := range s.ExpectedOutputs {
			if o.PromptTemplates != nil {
				o.PromptTemplates = append(make([]string, 0, len(o.PromptTemplates)), o.PromptTemplates...)
			}
			c.ExpectedOutputs[i] = o
		}
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
