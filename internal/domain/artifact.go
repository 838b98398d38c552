package domain

import (
	"strings"
	"time"
)

// Artifact source tags.
const (
	SourceAI     = "ai"
	SourceUser   = "user"
	SourceImport = "import"
)

// Artifact is a generated deliverable attached to a stage. Once added it is
// immutable; the only permitted change is removal.
type Artifact struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Content   string    `json:"content,omitempty"`
	Source    string    `json:"source,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArtifactInput carries caller-supplied artifact fields. CreatedAt is always
// assigned by the stage.
type ArtifactInput struct {
	ID      string
	Type    string
	Name    string
	Content string
	Source  string
	Tokens  int
}

func (in ArtifactInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(in.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return validationf("artifact %s required", strings.Join(missing, ", "))
	}
	if in.Tokens < 0 {
		return validationf("artifact tokens must be non-negative")
	}
	return nil
}

// DroppedArtifact identifies an artifact that a wholesale stage replacement
// discarded because the caller did not re-supply it.
type DroppedArtifact struct {
	StageID    string
	ArtifactID string
	Name       string
}
