package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Option configures a service.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer UseCaseObserver
}

// WithClock replaces the wall clock used to stamp mutations.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver reports every use case to obs.
func WithObserver(obs UseCaseObserver) Option {
	return func(o *options) {
		o.observer = useCaseObserverOrNoop([]UseCaseObserver{obs})
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		observer: NoopUseCaseObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func observe(ctx context.Context, obs UseCaseObserver, name string, startedAt time.Time, fields map[string]any, err error) {
	obs.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

var validate = validator.New()

// validateInput checks struct tags and reports failures as domain.ErrValidation.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	failed := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failed = append(failed, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: invalid %s", domain.ErrValidation, strings.Join(failed, ", "))
}
