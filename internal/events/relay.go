// Package events publishes domain events recorded in the outbox.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/ideaflow/internal/repository"
)

// Sink receives published events. Delivery is at-least-once, so sinks must
// tolerate duplicates.
type Sink interface {
	Publish(ctx context.Context, rec repository.OutboxRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec repository.OutboxRecord) error

func (f SinkFunc) Publish(ctx context.Context, rec repository.OutboxRecord) error {
	return f(ctx, rec)
}

// LogSink writes each event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, rec repository.OutboxRecord) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "domain event",
		"event", rec.EventName,
		"aggregate_id", rec.AggregateID,
		"occurred_at", rec.OccurredAt,
		"payload", string(rec.Payload),
	)
	return nil
}

// Outbox is the part of the outbox store the relay needs.
type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]repository.OutboxRecord, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
}

type Relay struct {
	outbox Outbox
	sink   Sink
	cfg    RelayConfig
	now    func() time.Time
	logger *slog.Logger
}

type RelayOption func(*Relay)

func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRelay(outbox Outbox, sink Sink, cfg RelayConfig, opts ...RelayOption) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	r := &Relay{
		outbox: outbox,
		sink:   sink,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Drain publishes pending events in batches until the outbox is empty or the
// sink fails. Events are marked published only after the sink accepted them;
// if marking fails they are delivered again on the next drain.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	published := 0
	for {
		pending, err := r.outbox.ListPending(ctx, r.cfg.BatchSize)
		if err != nil {
			return published, fmt.Errorf("listing pending events: %w", err)
		}
		if len(pending) == 0 {
			return published, nil
		}

		ids := make([]string, 0, len(pending))
		var publishErr error
		for _, rec := range pending {
			if err := r.sink.Publish(ctx, rec); err != nil {
				publishErr = fmt.Errorf("publishing event %s (%s): %w", rec.ID, rec.EventName, err)
				break
			}
			ids = append(ids, rec.ID)
		}
		if len(ids) > 0 {
			if err := r.outbox.MarkPublished(ctx, ids, r.now().UTC()); err != nil {
				return published, fmt.Errorf("marking events published: %w", err)
			}
			published += len(ids)
		}
		if publishErr != nil {
			return published, publishErr
		}
		if len(pending) < r.cfg.BatchSize {
			return published, nil
		}
	}
}

// Run drains the outbox immediately and then on every interval until ctx
// ends. Failures are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return fmt.Errorf("relay interval must be positive, got %s", r.cfg.Interval)
	}
	r.logger.InfoContext(ctx, "event relay started", "interval", r.cfg.Interval.String(), "batch_size", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		n, err := r.Drain(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "event relay drain failed", "published", n, "error", err)
		} else if n > 0 {
			r.logger.InfoContext(ctx, "events published", "count", n)
		}
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "event relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}
