package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
)

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver logs use cases through logger. Rejected requests
// (bad input, forbidden, invalid transitions) are logged at WARN, anything
// else that fails at ERROR.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err == nil {
		o.logger.InfoContext(ctx, "service_use_case", attrs...)
		return
	}
	attrs = append(attrs, "error", event.Err.Error())
	if isRejection(event.Err) {
		o.logger.WarnContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.ErrorContext(ctx, "service_use_case", attrs...)
}

func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrInvalidTransition,
		domain.ErrForbidden,
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrUnsupportedMode,
		domain.ErrEmptyWorkflow,
		domain.ErrNoCurrentStage,
		domain.ErrAlreadyAtFinalStage,
		domain.ErrNoWorkflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
