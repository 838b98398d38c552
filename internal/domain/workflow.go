package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Workflow is the ordered stage sequence owned by a project. Stages are kept
// sorted by OrderNumber; CurrentStageID is a reference, empty when unset.
type Workflow struct {
	ID             string    `json:"id"`
	Stages         []Stage   `json:"stages"`
	CurrentStageID string    `json:"currentStageId,omitempty"`
	IsCustom       bool      `json:"isCustom"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StageSpec describes one stage of a wholesale replacement. Status may be
// empty (pending). Artifacts are carried over only when supplied here.
type StageSpec struct {
	ID              string
	Name            string
	Description     string
	Status          StageStatus
	Artifacts       []Artifact
	ExpectedOutputs []ExpectedOutput
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// NewDefaultWorkflow builds a workflow from the canonical stage catalog. The
// first stage is current; every stage starts pending.
func NewDefaultWorkflow(id string, now time.Time) *Workflow {
	catalog := DefaultStageCatalog()
	stages := make([]Stage, len(catalog))
	for i, def := range catalog {
		stages[i] = Stage{
			ID:              def.ID,
			Name:            def.Name,
			OrderNumber:     i + 1,
			Description:     def.Description,
			Status:          StagePending,
			Artifacts:       []Artifact{},
			ExpectedOutputs: def.ExpectedOutputs,
		}
	}
	w := &Workflow{
		ID:        id,
		Stages:    stages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(stages) > 0 {
		w.CurrentStageID = stages[0].ID
	}
	return w
}

func (w *Workflow) indexOf(stageID string) int {
	for i := range w.Stages {
		if w.Stages[i].ID == stageID {
			return i
		}
	}
	return -1
}

// Stage returns the stage with the given id.
func (w *Workflow) Stage(stageID string) (*Stage, error) {
	i := w.indexOf(stageID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrStageNotFound, stageID)
	}
	return &w.Stages[i], nil
}

// CurrentStage resolves CurrentStageID.
func (w *Workflow) CurrentStage() (*Stage, error) {
	if w.CurrentStageID == "" {
		return nil, ErrNoCurrentStage
	}
	i := w.indexOf(w.CurrentStageID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q does not exist", ErrNoCurrentStage, w.CurrentStageID)
	}
	return &w.Stages[i], nil
}

// successor returns the stage with the smallest order number greater than
// the given stage's, or nil when it is the last one.
func (w *Workflow) successor(current *Stage) *Stage {
	var next *Stage
	for i := range w.Stages {
		s := &w.Stages[i]
		if s.OrderNumber <= current.OrderNumber {
			continue
		}
		if next == nil || s.OrderNumber < next.OrderNumber {
			next = s
		}
	}
	return next
}

// MoveToNextStage completes the current stage and starts its successor.
// Either both happen or neither does.
func (w *Workflow) MoveToNextStage(now time.Time) (*Stage, error) {
	current, err := w.CurrentStage()
	if err != nil {
		return nil, err
	}
	next := w.successor(current)
	if next == nil {
		return nil, fmt.Errorf("%w: %q is the last stage", ErrAlreadyAtFinalStage, current.ID)
	}
	if current.Status != StageInProgress {
		return nil, transitionf("cannot complete stage %q: status is %s", current.ID, current.Status)
	}
	if next.Status == StageCompleted {
		return nil, transitionf("cannot start stage %q: status is %s", next.ID, next.Status)
	}
	if err := current.Complete(now); err != nil {
		return nil, err
	}
	if err := next.Start(now); err != nil {
		return nil, err
	}
	w.CurrentStageID = next.ID
	w.UpdatedAt = now
	return next, nil
}

// MoveToStage jumps to any existing stage and starts it. Earlier stages do
// not need to be completed.
func (w *Workflow) MoveToStage(stageID string, now time.Time) (*Stage, error) {
	target, err := w.Stage(stageID)
	if err != nil {
		return nil, err
	}
	if err := target.Start(now); err != nil {
		return nil, err
	}
	w.CurrentStageID = target.ID
	w.UpdatedAt = now
	return target, nil
}

// StartCurrentStage starts the current stage.
func (w *Workflow) StartCurrentStage(now time.Time) (*Stage, error) {
	current, err := w.CurrentStage()
	if err != nil {
		return nil, err
	}
	if err := current.Start(now); err != nil {
		return nil, err
	}
	w.UpdatedAt = now
	return current, nil
}

// CompleteCurrentStage completes the current stage without advancing. This
// is how the final stage gets completed.
func (w *Workflow) CompleteCurrentStage(now time.Time) (*Stage, error) {
	current, err := w.CurrentStage()
	if err != nil {
		return nil, err
	}
	if err := current.Complete(now); err != nil {
		return nil, err
	}
	w.UpdatedAt = now
	return current, nil
}

// CustomizeStages replaces the whole stage list. Order numbers follow the
// position in specs. Artifacts attached to the previous stages are kept only
// if the caller re-supplies them; the ones lost are returned so the caller
// can act on them.
func (w *Workflow) CustomizeStages(specs []StageSpec, now time.Time) ([]DroppedArtifact, error) {
	if len(specs) == 0 {
		return nil, ErrEmptyWorkflow
	}
	seen := make(map[string]bool, len(specs))
	stages := make([]Stage, len(specs))
	for i, spec := range specs {
		stage, err := stageFromSpec(spec, i+1, now)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		if seen[stage.ID] {
			return nil, validationf("duplicate stage id %q", stage.ID)
		}
		seen[stage.ID] = true
		stages[i] = stage
	}

	kept := make(map[string]bool)
	for _, s := range stages {
		for _, a := range s.Artifacts {
			kept[s.ID+"\x00"+a.ID] = true
		}
	}
	var dropped []DroppedArtifact
	for _, s := range w.Stages {
		for _, a := range s.Artifacts {
			if !kept[s.ID+"\x00"+a.ID] {
				dropped = append(dropped, DroppedArtifact{StageID: s.ID, ArtifactID: a.ID, Name: a.Name})
			}
		}
	}

	w.Stages = stages
	if !seen[w.CurrentStageID] {
		w.CurrentStageID = stages[0].ID
	}
	w.IsCustom = true
	w.UpdatedAt = now
	return dropped, nil
}

func stageFromSpec(spec StageSpec, order int, now time.Time) (Stage, error) {
	id := strings.TrimSpace(spec.ID)
	name := strings.TrimSpace(spec.Name)
	if id == "" || name == "" {
		return Stage{}, validationf("stage id and name are required")
	}
	status := spec.Status
	if status == "" {
		status = StagePending
	}
	if !status.Valid() {
		return Stage{}, validationf("unknown stage status %q", status)
	}
	artifactIDs := make(map[string]bool, len(spec.Artifacts))
	for _, a := range spec.Artifacts {
		if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Type) == "" || strings.TrimSpace(a.Name) == "" {
			return Stage{}, validationf("artifact id, type and name are required")
		}
		if artifactIDs[a.ID] {
			return Stage{}, validationf("duplicate artifact id %q", a.ID)
		}
		artifactIDs[a.ID] = true
	}

	s := Stage{
		ID:              id,
		Name:            name,
		OrderNumber:     order,
		Description:     spec.Description,
		Status:          status,
		Artifacts:       append([]Artifact{}, spec.Artifacts...),
		ExpectedOutputs: append([]ExpectedOutput{}, spec.ExpectedOutputs...),
		StartedAt:       copyTime(spec.StartedAt),
		CompletedAt:     copyTime(spec.CompletedAt),
	}
	switch status {
	case StagePending:
		s.StartedAt, s.CompletedAt = nil, nil
	case StageInProgress:
		s.CompletedAt = nil
		if s.StartedAt == nil {
			s.StartedAt = copyTime(&now)
		}
	case StageCompleted:
		if s.StartedAt == nil {
			s.StartedAt = copyTime(&now)
		}
		if s.CompletedAt == nil {
			s.CompletedAt = copyTime(&now)
		}
	}
	return s, nil
}

// CompletionPercentage is round(completed / total * 100), 0 when there are
// no stages.
func (w *Workflow) CompletionPercentage() int {
	if len(w.Stages) == 0 {
		return 0
	}
	completed := 0
	for i := range w.Stages {
		if w.Stages[i].IsCompleted() {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(w.Stages)) * 100))
}

// Validate checks the structural invariants of the workflow.
func (w *Workflow) Validate() error {
	if len(w.Stages) == 0 {
		return ErrEmptyWorkflow
	}
	orders := make(map[int]string, len(w.Stages))
	for _, s := range w.Stages {
		if prev, ok := orders[s.OrderNumber]; ok {
			return fmt.Errorf("%w: %d used by %q and %q", ErrDuplicateOrder, s.OrderNumber, prev, s.ID)
		}
		orders[s.OrderNumber] = s.ID
	}
	if w.CurrentStageID != "" && w.indexOf(w.CurrentStageID) < 0 {
		return fmt.Errorf("%w: %q", ErrDanglingCurrentStage, w.CurrentStageID)
	}
	return nil
}

// OrderedStages returns copies of the stages sorted by OrderNumber.
func (w *Workflow) OrderedStages() []Stage {
	out := make([]Stage, len(w.Stages))
	for i, s := range w.Stages {
		out[i] = s.clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Stages = make([]Stage, len(w.Stages))
	for i, s := range w.Stages {
		c.Stages[i] = s.clone()
	}
	return &c
}

// DecodeWorkflow parses the canonical JSON form produced by json.Marshal.
// The stages field must be an array; any other shape is rejected rather than
// coerced. The decoded workflow is validated.
func DecodeWorkflow(data []byte) (*Workflow, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w Workflow
	if err := dec.Decode(&w); err != nil {
		return nil, validationf("decoding workflow: %v", err)
	}
	sort.SliceStable(w.Stages, func(i, j int) bool {
		return w.Stages[i].OrderNumber < w.Stages[j].OrderNumber
	})
	for i := range w.Stages {
		if w.Stages[i].Artifacts == nil {
			w.Stages[i].Artifacts = []Artifact{}
		}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
