package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the domain core. Callers match them with
// errors.Is; details are attached with fmt.Errorf("%w: ...").
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnsupportedMode   = errors.New("unsupported project mode")
	ErrConflict          = errors.New("conflict")

	// Raised by Workflow.Validate.
	ErrEmptyWorkflow        = errors.New("workflow has no stages")
	ErrDuplicateOrder       = errors.New("duplicate stage order number")
	ErrDanglingCurrentStage = errors.New("current stage does not exist")

	ErrNoCurrentStage      = errors.New("workflow has no current stage")
	ErrAlreadyAtFinalStage = errors.New("workflow is already at its final stage")
	ErrNoWorkflow          = errors.New("project has no workflow")
)

// ErrStageNotFound is a NotFound specialised for stage lookups.
var ErrStageNotFound = fmt.Errorf("stage %w", ErrNotFound)

// ErrProjectDeleted is returned by every mutator once a project has been
// soft-deleted.
var ErrProjectDeleted = fmt.Errorf("%w: project is deleted", ErrInvalidTransition)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func transitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}
