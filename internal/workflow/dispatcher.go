package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"aisocial/internal/domain"
)

// Runner executes a single workflow run.
type Runner interface {
	Run(ctx context.Context, wf *domain.Workflow, trigger domain.RunTrigger) (*domain.RunResult, error)
}

// DispatchStats summarizes one dispatcher tick.
type DispatchStats struct {
	Claimed     int
	Published   int
	Failed      int
	Rescheduled int
}

// Dispatcher turns due scheduled posts into executor runs. Posts of one
// workflow run in scheduled order; different workflows run concurrently.
type Dispatcher struct {
	posts       domain.ScheduledPostRepository
	workflows   domain.WorkflowRepository
	runner      Runner
	scheduler   *Scheduler
	logger      zerolog.Logger
	batchSize   int
	concurrency int
	now         func() time.Time

	// cycle keeps Tick and Refresh from rescheduling the same workflow at once.
	cycle sync.Mutex
}

func NewDispatcher(posts domain.ScheduledPostRepository, workflows domain.WorkflowRepository, runner Runner, scheduler *Scheduler, logger zerolog.Logger, batchSize, concurrency int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Dispatcher{
		posts:       posts,
		workflows:   workflows,
		runner:      runner,
		scheduler:   scheduler,
		logger:      logger,
		batchSize:   batchSize,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Tick claims every due post and runs it.
func (d *Dispatcher) Tick(ctx context.Context) (DispatchStats, error) {
	d.cycle.Lock()
	defer d.cycle.Unlock()

	var stats DispatchStats
	due, err := d.posts.ClaimDue(ctx, d.now(), d.batchSize)
	if err != nil {
		return stats, fmt.Errorf("claim due posts: %w", err)
	}
	stats.Claimed = len(due)
	if len(due) == 0 {
		return stats, nil
	}

	var order []string
	groups := map[string][]domain.ScheduledPost{}
	for _, p := range due {
		if _, seen := groups[p.WorkflowID]; !seen {
			order = append(order, p.WorkflowID)
		}
		groups[p.WorkflowID] = append(groups[p.WorkflowID], p)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, wfID := range order {
		posts := groups[wfID]
		g.Go(func() error {
			s := d.runWorkflow(gctx, posts)
			mu.Lock()
			stats.Published += s.Published
			stats.Failed += s.Failed
			stats.Rescheduled += s.Rescheduled
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	d.logger.Info().
		Int("claimed", stats.Claimed).
		Int("published", stats.Published).
		Int("failed", stats.Failed).
		Int("rescheduled", stats.Rescheduled).
		Msg("dispatch tick finished")
	return stats, nil
}

func (d *Dispatcher) runWorkflow(ctx context.Context, posts []domain.ScheduledPost) DispatchStats {
	var stats DispatchStats
	wfID := posts[0].WorkflowID
	log := d.logger.With().Str("workflow_id", wfID).Logger()

	for _, p := range posts {
		// reload per post so a deactivation mid-batch stops the remaining runs
		wf, err := d.workflows.GetByID(ctx, wfID)
		if err != nil || !wf.Active {
			reason := "workflow inactive"
			if err != nil {
				reason = "workflow unavailable: " + err.Error()
			}
			d.mark(ctx, log, p.ID, domain.ScheduledPostStatusFailed, reason)
			stats.Failed++
			continue
		}
		status, msg := d.runPost(ctx, wf, p)
		d.mark(ctx, log, p.ID, status, msg)
		if status == domain.ScheduledPostStatusPublished {
			stats.Published++
		} else {
			stats.Failed++
		}
	}

	if d.roll(ctx, log, wfID) {
		stats.Rescheduled++
	}
	return stats
}

// roll re-materializes the window from the stored workflow. Runs can take
// minutes, so the copy read before them may no longer be active or current.
func (d *Dispatcher) roll(ctx context.Context, log zerolog.Logger, wfID string) bool {
	if d.scheduler == nil {
		return false
	}
	wf, err := d.workflows.GetByID(ctx, wfID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("reload workflow before roll")
		}
		return false
	}
	// once schedules only ever cover their first day
	if !wf.Active || wf.Recurrence.Normalized().Frequency == domain.FrequencyOnce {
		return false
	}
	if _, err := d.scheduler.Reschedule(ctx, wf); err != nil {
		log.Error().Err(err).Msg("roll schedule window")
		return false
	}
	return true
}

func (d *Dispatcher) runPost(ctx context.Context, wf *domain.Workflow, post domain.ScheduledPost) (status domain.ScheduledPostStatus, msg string) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error().Str("post_id", post.ID).Interface("panic", p).Msg("scheduled run panicked")
			status, msg = domain.ScheduledPostStatusFailed, fmt.Sprintf("executor panic: %v", p)
		}
	}()

	res, err := d.runner.Run(ctx, wf, domain.TriggerScheduled)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			return domain.ScheduledPostStatusFailed, "skipped: another run of this workflow is in progress"
		}
		return domain.ScheduledPostStatusFailed, err.Error()
	}
	switch res.Outcome {
	case domain.OutcomeSuccess:
		return domain.ScheduledPostStatusPublished, ""
	case domain.OutcomePartial:
		// content was generated and billed; keep the publish error alongside
		return domain.ScheduledPostStatusPublished, res.Message
	default:
		return domain.ScheduledPostStatusFailed, res.Reason
	}
}

func (d *Dispatcher) mark(ctx context.Context, log zerolog.Logger, postID string, status domain.ScheduledPostStatus, msg string) {
	if err := d.posts.MarkResult(context.WithoutCancel(ctx), postID, status, msg); err != nil {
		log.Error().Err(err).Str("post_id", postID).Msg("mark scheduled post")
	}
}

// Refresh re-materializes the window of every active recurring workflow so
// schedules keep rolling even when no post fell due.
func (d *Dispatcher) Refresh(ctx context.Context) (int, error) {
	if d.scheduler == nil {
		return 0, nil
	}
	d.cycle.Lock()
	defer d.cycle.Unlock()

	refreshed := 0
	after := ""
	for {
		page, err := d.workflows.ListActive(ctx, after, d.batchSize)
		if err != nil {
			return refreshed, fmt.Errorf("list active workflows: %w", err)
		}
		for i := range page {
			after = page[i].ID
			if d.roll(ctx, d.logger.With().Str("workflow_id", after).Logger(), after) {
				refreshed++
			}
		}
		if len(page) < d.batchSize {
			return refreshed, nil
		}
	}
}
