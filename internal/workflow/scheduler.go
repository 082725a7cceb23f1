package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"aisocial/internal/domain"
	"aisocial/internal/schedule"
)

// Scheduler keeps a workflow's scheduled posts consistent with its recurrence.
type Scheduler struct {
	workflows  domain.WorkflowRepository
	posts      domain.ScheduledPostRepository
	logger     zerolog.Logger
	horizon    int
	defaultLoc *time.Location
	now        func() time.Time
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithHorizon sets the materialization window in days.
func WithHorizon(days int) SchedulerOption {
	return func(s *Scheduler) {
		if days > 0 {
			s.horizon = days
		}
	}
}

// WithDefaultLocation sets the zone used for workflows without a timezone.
func WithDefaultLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.defaultLoc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(workflows domain.WorkflowRepository, posts domain.ScheduledPostRepository, logger zerolog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		workflows:  workflows,
		posts:      posts,
		logger:     logger,
		horizon:    schedule.DefaultHorizonDays,
		defaultLoc: time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reschedule replaces the pending posts of wf with a fresh window computed
// from its recurrence. Inactive workflows are cancelled instead.
func (s *Scheduler) Reschedule(ctx context.Context, wf *domain.Workflow) ([]domain.ScheduledPost, error) {
	if !wf.Active {
		return nil, s.Cancel(ctx, wf.ID)
	}
	if err := domain.ValidateScheduleConfig(wf.Recurrence); err != nil {
		return nil, err
	}
	log := s.logger.With().Str("workflow_id", wf.ID).Logger()

	cleared, err := s.posts.ClearPending(ctx, wf.ID)
	if err != nil {
		return nil, fmt.Errorf("clear pending posts: %w", err)
	}

	loc := s.location(wf)
	cfg := wf.Recurrence.Normalized()
	instants := schedule.NextInstants(cfg, s.horizon, s.now(), loc)
	if len(instants) == 0 {
		log.Info().Int64("cleared", cleared).Str("frequency", string(cfg.Frequency)).Msg("schedule produced no upcoming instants")
		if err := s.workflows.SetNextRun(ctx, wf.ID, nil); err != nil {
			return nil, fmt.Errorf("set next run: %w", err)
		}
		return nil, nil
	}

	snapshot := domain.ScheduleSnapshot{
		Frequency: cfg.Frequency,
		Times:     cfg.Times,
		Days:      cfg.Days,
		Timezone:  loc.String(),
		Horizon:   s.horizon,
	}
	posts, err := s.posts.Materialize(ctx, wf.ID, wf.OwnerID, instants, wf.Platforms, snapshot)
	if err != nil {
		// A store without atomic batches may have written some rows.
		if _, cleanupErr := s.posts.ClearPending(context.WithoutCancel(ctx), wf.ID); cleanupErr != nil {
			log.Error().Err(cleanupErr).Msg("cleanup after failed materialization")
		}
		return nil, fmt.Errorf("materialize schedule for workflow %s: %w", wf.ID, err)
	}

	next := instants[0]
	if err := s.workflows.SetNextRun(ctx, wf.ID, &next); err != nil {
		return nil, fmt.Errorf("set next run: %w", err)
	}
	wf.NextRunAt = &next
	log.Info().
		Int64("cleared", cleared).
		Int("materialized", len(posts)).
		Time("next_run_at", next).
		Msg("workflow rescheduled")
	return posts, nil
}

// Cancel drops every pending post of the workflow.
func (s *Scheduler) Cancel(ctx context.Context, workflowID string) error {
	cleared, err := s.posts.ClearPending(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("clear pending posts: %w", err)
	}
	if err := s.workflows.SetNextRun(ctx, workflowID, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("clear next run: %w", err)
	}
	s.logger.Info().Str("workflow_id", workflowID).Int64("cleared", cleared).Msg("workflow schedule cancelled")
	return nil
}

// Preview computes the instants cfg would produce without persisting them.
func (s *Scheduler) Preview(cfg domain.ScheduleConfig, timezone string, horizon int) ([]time.Time, error) {
	if err := domain.ValidateScheduleConfig(cfg); err != nil {
		return nil, err
	}
	loc := s.defaultLoc
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", timezone, domain.ErrInvalidSchedule)
		}
		loc = l
	}
	if horizon <= 0 {
		horizon = s.horizon
	}
	return schedule.NextInstants(cfg.Normalized(), horizon, s.now(), loc), nil
}

func (s *Scheduler) location(wf *domain.Workflow) *time.Location {
	if wf.Timezone == "" {
		return s.defaultLoc
	}
	return wf.Location()
}
