// Package sweeper resolves generation jobs that were left in their
// in-progress status after the generator stopped writing to them.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/ideaflow/internal/domain"
	"golang.org/x/sync/errgroup"
)

// JobStore applies filtered status transitions. Implementations must apply
// each call as a single filtered update so a job that leaves its in-progress
// status concurrently is not touched.
type JobStore interface {
	BulkTransition(ctx context.Context, f domain.JobFilter, tr domain.JobTransition) (int64, error)
}

type Config struct {
	// StaleAfter is how long a job may go without an update before it is
	// considered abandoned.
	StaleAfter time.Duration
	Interval   time.Duration
	// FailStalePlans also fails business plans that never received a
	// populated chapter. Reports are always failed in that case.
	FailStalePlans bool
	// Enabled is false for ephemeral job stores, where a restart already
	// drops every job.
	Enabled bool
}

// Option configures a Sweeper.
type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Sweeper struct {
	store  JobStore
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func New(store JobStore, cfg Config, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sweeper) Enabled() bool { return s.cfg.Enabled }

// RuleResult is the outcome of one rule in one sweep.
type RuleResult struct {
	Kind    domain.JobKind
	Rule    string
	Target  domain.JobStatus
	Matched int64
	Err     error
}

type SweepResult struct {
	At     time.Time
	Cutoff time.Time
	Rules  []RuleResult
}

// Completed counts the jobs moved to completed.
func (r SweepResult) Completed() int64 {
	return r.count(domain.JobCompleted)
}

// Failed counts the jobs moved to failed.
func (r SweepResult) Failed() int64 {
	return r.count(domain.JobFailed)
}

func (r SweepResult) count(target domain.JobStatus) int64 {
	var n int64
	for _, rr := range r.Rules {
		if rr.Target == target {
			n += rr.Matched
		}
	}
	return n
}

type rule struct {
	name    string
	content domain.ContentPresence
	target  domain.JobStatus
}

func (s *Sweeper) rulesFor(kind domain.JobKind) []rule {
	rules := []rule{{name: "complete-with-content", content: domain.ContentPresent, target: domain.JobCompleted}}
	if kind == domain.JobReport || s.cfg.FailStalePlans {
		rules = append(rules, rule{name: "fail-without-content", content: domain.ContentAbsent, target: domain.JobFailed})
	}
	return rules
}

func (r rule) transition(now time.Time) domain.JobTransition {
	tr := domain.JobTransition{Status: r.target, UpdatedAt: now}
	switch r.target {
	case domain.JobCompleted:
		tr.CompletedAt = &now
	case domain.JobFailed:
		reason := domain.AutoFailReason
		tr.ErrorReason = &reason
		tr.AutoRecoveredAt = &now
	}
	return tr
}

// Sweep runs one pass over every job kind. Kinds are swept concurrently and
// a store error on one kind does not stop the other. The returned error is
// the first failure; every rule's outcome is in the result. A disabled
// sweeper does nothing.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()
	result := SweepResult{At: now, Cutoff: now.Add(-s.cfg.StaleAfter)}
	if !s.cfg.Enabled {
		return result, nil
	}

	kinds := []domain.JobKind{domain.JobReport, domain.JobBusinessPlan}
	perKind := make([][]RuleResult, len(kinds))
	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			var err error
			perKind[i], err = s.sweepKind(ctx, kind, result.Cutoff, now)
			return err
		})
	}
	err := g.Wait()
	for _, rr := range perKind {
		result.Rules = append(result.Rules, rr...)
	}

	s.logger.InfoContext(ctx, "sweep finished",
		"cutoff", result.Cutoff,
		"completed", result.Completed(),
		"failed", result.Failed(),
		"ok", err == nil,
	)
	return result, err
}

func (s *Sweeper) sweepKind(ctx context.Context, kind domain.JobKind, cutoff, now time.Time) ([]RuleResult, error) {
	var (
		results  []RuleResult
		firstErr error
	)
	for _, r := range s.rulesFor(kind) {
		filter := domain.JobFilter{
			Kind:          kind,
			Status:        kind.InProgressStatus(),
			UpdatedBefore: cutoff,
			Content:       r.content,
		}
		n, err := s.store.BulkTransition(ctx, filter, r.transition(now))
		rr := RuleResult{Kind: kind, Rule: r.name, Target: r.target, Matched: n, Err: err}
		results = append(results, rr)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep rule failed", "kind", string(kind), "rule", r.name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sweeping %s jobs (%s): %w", kind, r.name, err)
			}
			continue
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "stale jobs resolved",
				"kind", string(kind), "rule", r.name, "status", string(r.target), "count", n)
		}
	}
	return results, firstErr
}

// Run sweeps once immediately and then on every interval until ctx ends.
// Errors are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.InfoContext(ctx, "sweeper disabled for ephemeral job store")
		return nil
	}
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("%w: sweep interval must be positive", domain.ErrValidation)
	}
	s.logger.InfoContext(ctx, "sweeper started",
		"interval", s.cfg.Interval.String(), "stale_after", s.cfg.StaleAfter.String())

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		// Failures are logged inside Sweep.
		_, _ = s.Sweep(ctx)
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
