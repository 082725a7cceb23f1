// Package workflow schedules and executes content-generation workflows.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"aisocial/internal/domain"
	"aisocial/internal/progress"
)

// Invoker starts the remote job that generates and publishes a workflow's content.
type Invoker interface {
	Invoke(ctx context.Context, workflowID string) (*domain.JobResult, error)
}

// ExecutorConfig holds the executor's pacing and pricing.
type ExecutorConfig struct {
	Costs         domain.CostTable
	PrepareDwell  time.Duration
	PollInterval  time.Duration
	PublishDwell  time.Duration
	RunTimeout    time.Duration
	CreatedSkew   time.Duration
	ProgressEvery int
}

// DefaultExecutorConfig mirrors the pacing observed in production.
func DefaultExecutorConfig(costs domain.CostTable) ExecutorConfig {
	return ExecutorConfig{
		Costs:         costs,
		PrepareDwell:  3 * time.Second,
		PollInterval:  3 * time.Second,
		PublishDwell:  10 * time.Second,
		RunTimeout:    10 * time.Minute,
		CreatedSkew:   5 * time.Second,
		ProgressEvery: 3,
	}
}

const (
	genericFailure    = "workflow execution failed"
	stageWriteTimeout = 5 * time.Second
)

// Executor runs one workflow end to end: admission, generation, optional
// publish and terminal reporting.
type Executor struct {
	workflows domain.WorkflowRepository
	contents  domain.ContentRepository
	ledger    domain.CreditLedger
	invoker   Invoker
	notifier  progress.Notifier
	runs      *RunRegistry
	store     domain.RunRepository
	cfg       ExecutorConfig
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// ExecutorDeps groups the collaborators of an Executor.
type ExecutorDeps struct {
	Workflows domain.WorkflowRepository
	Contents  domain.ContentRepository
	Ledger    domain.CreditLedger
	Invoker   Invoker
	Notifier  progress.Notifier
	Runs      *RunRegistry
	// RunStore shares the one-run-per-workflow claim with other processes.
	RunStore domain.RunRepository
	Logger   zerolog.Logger
}

func NewExecutor(deps ExecutorDeps, cfg ExecutorConfig) *Executor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 3
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = progress.Discard{}
	}
	runs := deps.Runs
	if runs == nil {
		runs = NewRunRegistry()
	}
	return &Executor{
		workflows: deps.Workflows,
		contents:  deps.Contents,
		ledger:    deps.Ledger,
		invoker:   deps.Invoker,
		notifier:  notifier,
		runs:      runs,
		store:     deps.RunStore,
		cfg:       cfg,
		logger:    deps.Logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Runs exposes the registry of in-flight executions of this process.
func (e *Executor) Runs() *RunRegistry {
	return e.runs
}

// Active returns the workflow's in-flight run, wherever it executes.
func (e *Executor) Active(ctx context.Context, workflowID string) (ActiveRun, bool, error) {
	if e.store == nil {
		run, ok := e.runs.Get(workflowID)
		return run, ok, nil
	}
	run, err := e.store.Active(ctx, workflowID)
	if errors.Is(err, domain.ErrNotFound) {
		return ActiveRun{}, false, nil
	}
	if err != nil {
		return ActiveRun{}, false, err
	}
	return *run, true, nil
}

// ActiveByOwner lists the owner's in-flight runs, oldest first.
func (e *Executor) ActiveByOwner(ctx context.Context, ownerID string) ([]ActiveRun, error) {
	if e.store == nil {
		return e.runs.ListByOwner(ownerID), nil
	}
	return e.store.ListActiveByOwner(ctx, ownerID)
}

// Run executes wf synchronously. The only error returned is
// domain.ErrRunInProgress; every other failure is reported in the result.
func (e *Executor) Run(ctx context.Context, wf *domain.Workflow, trigger domain.RunTrigger) (*domain.RunResult, error) {
	r, release, err := e.begin(ctx, wf, trigger)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.execute(ctx), nil
}

// Start claims the workflow and runs it in the background, detached from
// ctx cancellation. It returns the run id once the claim succeeds.
func (e *Executor) Start(ctx context.Context, wf *domain.Workflow, trigger domain.RunTrigger) (string, error) {
	r, release, err := e.begin(ctx, wf, trigger)
	if err != nil {
		return "", err
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer release()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error().Interface("panic", p).Msg("workflow run panicked")
			}
		}()
		r.execute(bg)
	}()
	return r.id, nil
}

func (e *Executor) begin(ctx context.Context, wf *domain.Workflow, trigger domain.RunTrigger) (*run, func(), error) {
	active := ActiveRun{
		RunID:      e.newID(),
		WorkflowID: wf.ID,
		OwnerID:    wf.OwnerID,
		Trigger:    trigger,
		Stage:      domain.StageIdle,
		StartedAt:  e.now(),
	}
	unlock, err := e.runs.Acquire(active)
	if err != nil {
		return nil, nil, err
	}
	if e.store != nil {
		// a holder older than any run could last crashed without finishing
		staleBefore := active.StartedAt.Add(-(e.cfg.RunTimeout + time.Minute))
		if err := e.store.Begin(ctx, active, staleBefore); err != nil {
			unlock()
			if errors.Is(err, domain.ErrRunInProgress) {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("claim workflow run: %w", err)
		}
	}
	r := &run{
		e:       e,
		id:      active.RunID,
		wf:      wf,
		trigger: trigger,
		stage:   domain.StageIdle,
		log: e.logger.With().
			Str("run_id", active.RunID).
			Str("workflow_id", wf.ID).
			Str("owner_id", wf.OwnerID).
			Str("trigger", string(trigger)).
			Logger(),
	}
	release := func() {
		if e.store != nil {
			if err := e.store.Finish(context.WithoutCancel(ctx), r.id, r.stage, r.message); err != nil {
				r.log.Error().Err(err).Msg("finish workflow run")
			}
		}
		unlock()
	}
	return r, release, nil
}

type jobOutcome struct {
	res *domain.JobResult
	err error
}

// run is the per-execution context threaded through every stage.
type run struct {
	e       *Executor
	id      string
	wf      *domain.Workflow
	trigger domain.RunTrigger
	start   time.Time
	stage   domain.RunStage
	message string
	log     zerolog.Logger
}

func (r *run) execute(parent context.Context) *domain.RunResult {
	e := r.e
	r.start = e.now()
	ctx, cancel := context.WithTimeout(parent, e.cfg.RunTimeout)
	defer cancel()

	// admission
	r.enter(domain.StageAdmissionCheck, domain.LevelInfo, "Checking credit balance")
	cost := e.cfg.Costs.For(r.wf.ContentType)
	if _, err := e.ledger.Reserve(ctx, r.wf.OwnerID, cost, r.id); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return r.fail("insufficient credits", nil)
		}
		r.log.Error().Err(err).Msg("credit reservation failed")
		return r.fail("credit check failed: "+err.Error(), nil)
	}
	captured := false
	defer func() {
		if captured {
			return
		}
		if err := e.ledger.Release(context.WithoutCancel(ctx), r.id); err != nil {
			r.log.Error().Err(err).Msg("release credit hold")
		}
	}()

	// preparing
	r.enter(domain.StagePreparing, domain.LevelInfo, "Preparing content generation")
	jobs := make(chan jobOutcome, 1)
	go func() {
		res, err := e.invoker.Invoke(ctx, r.wf.ID)
		jobs <- jobOutcome{res: res, err: err}
	}()
	if err := sleepCtx(ctx, e.cfg.PrepareDwell); err != nil {
		return r.failContext(err, nil)
	}

	// generating
	r.enter(domain.StageGenerating, domain.LevelInfo, fmt.Sprintf("Generating %s", r.wf.ContentType))
	desc := fmt.Sprintf("%s generation for workflow %s", r.wf.ContentType, r.wf.Name)
	var (
		content *domain.GeneratedContent
		job     *jobOutcome
	)
	billedElsewhere := map[string]struct{}{}
	for content == nil {
		c, j, failure := r.poll(ctx, jobs, job, billedElsewhere)
		if failure != nil {
			return failure
		}
		job = j
		_, err := e.ledger.Capture(context.WithoutCancel(ctx), r.id, c.ID, desc)
		switch {
		case err == nil:
			captured = true
			content = c
		case errors.Is(err, domain.ErrDuplicateOperation):
			// another run of this owner already billed the record; keep the hold and wait for ours
			r.log.Warn().Str("content_id", c.ID).Msg("content billed by another run")
			billedElsewhere[c.ID] = struct{}{}
		default:
			r.log.Error().Err(err).Str("content_id", c.ID).Msg("credit capture failed")
			content = c
		}
	}

	// publishing
	targets := r.wf.PublishTargets()
	if len(targets) > 0 {
		r.enter(domain.StagePublishing, domain.LevelInfo, "Publishing to "+joinPlatforms(targets))
		if err := sleepCtx(ctx, e.cfg.PublishDwell); err != nil {
			return r.failContext(err, content)
		}
	}

	if job == nil {
		select {
		case out := <-jobs:
			job = &out
		case <-ctx.Done():
			return r.failContext(ctx.Err(), content)
		}
	}
	if reason, failed := jobFailure(*job); failed {
		if ctx.Err() != nil {
			return r.failContext(ctx.Err(), content)
		}
		return r.fail(reason, content)
	}
	return r.complete(context.WithoutCancel(ctx), content, targets, job.res)
}

// poll waits for the content record of this run. It returns either the
// completed record or a terminal failure result. Records in skip are ignored.
func (r *run) poll(ctx context.Context, jobs <-chan jobOutcome, job *jobOutcome, skip map[string]struct{}) (*domain.GeneratedContent, *jobOutcome, *domain.RunResult) {
	e := r.e
	since := r.start.Add(-e.cfg.CreatedSkew)
	timer := time.NewTimer(e.cfg.PollInterval)
	defer timer.Stop()

	if job != nil {
		jobs = nil
	}
	polls := 0
	for {
		select {
		case <-ctx.Done():
			return nil, nil, r.failContext(ctx.Err(), nil)
		case out := <-jobs:
			if reason, failed := jobFailure(out); failed {
				if ctx.Err() != nil {
					return nil, nil, r.failContext(ctx.Err(), nil)
				}
				return nil, nil, r.fail(reason, nil)
			}
			job = &out
			jobs = nil
			continue
		case <-timer.C:
		}

		polls++
		content, err := e.contents.LatestSince(ctx, r.wf.OwnerID, r.wf.ID, since)
		if err == nil {
			if _, taken := skip[content.ID]; taken {
				err = domain.ErrNotFound
			}
		}
		switch {
		case err == nil && content.Status == domain.ContentStatusCompleted && content.MediaURL != "":
			return content, job, nil
		case err == nil && content.Status == domain.ContentStatusFailed:
			reason := content.ErrorMessage
			if reason == "" {
				reason = "content generation failed"
			}
			return nil, nil, r.fail(reason, content)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			if ctx.Err() != nil {
				return nil, nil, r.failContext(ctx.Err(), nil)
			}
			r.log.Warn().Err(err).Int("poll", polls).Msg("content poll failed")
		}

		if polls%e.cfg.ProgressEvery == 0 {
			elapsed := r.elapsed()
			r.emit(domain.StageGenerating, domain.LevelInfo,
				fmt.Sprintf("Still generating %s (%s elapsed)", r.wf.ContentType, elapsed.Round(time.Second)))
		}
		timer.Reset(e.cfg.PollInterval)
	}
}

func (r *run) complete(ctx context.Context, content *domain.GeneratedContent, targets []string, res *domain.JobResult) *domain.RunResult {
	outcome := domain.OutcomeSuccess
	level := domain.LevelSuccess
	message := "Content generated successfully"

	var published, failures []string
	var publish map[string]domain.PublishOutcome
	if res != nil {
		publish = res.Publish
	}
	for _, p := range targets {
		o, ok := publish[p]
		switch {
		case !ok:
		case o.Error != "":
			failures = append(failures, p)
		case o.Success:
			published = append(published, p)
		}
	}
	switch {
	case len(failures) == 1:
		outcome, level = domain.OutcomePartial, domain.LevelInfo
		message = "Content generated, publish failed: " + publish[failures[0]].Error
	case len(failures) > 1:
		parts := make([]string, 0, len(failures))
		for _, p := range failures {
			parts = append(parts, platformName(p)+": "+publish[p].Error)
		}
		outcome, level = domain.OutcomePartial, domain.LevelInfo
		message = "Content generated, publish failed: " + strings.Join(parts, "; ")
	case len(published) > 0:
		message = "Content generated and published to " + joinPlatforms(published)
	}

	finished := r.e.now()
	if err := r.e.workflows.MarkRun(ctx, r.wf.ID, finished); err != nil {
		r.log.Error().Err(err).Msg("mark workflow run")
	}
	r.stage = domain.StageCompleted
	elapsed := finished.Sub(r.start)
	r.emitElapsed(domain.StageCompleted, level, message, elapsed)
	r.log.Info().Str("outcome", string(outcome)).Dur("elapsed", elapsed).Msg(message)

	return &domain.RunResult{
		RunID:      r.id,
		WorkflowID: r.wf.ID,
		Trigger:    r.trigger,
		Stage:      domain.StageCompleted,
		Outcome:    outcome,
		Message:    message,
		ContentID:  content.ID,
		MediaURL:   content.MediaURL,
		Publish:    publish,
		StartedAt:  r.start,
		Elapsed:    elapsed,
	}
}

func (r *run) fail(reason string, content *domain.GeneratedContent) *domain.RunResult {
	if strings.TrimSpace(reason) == "" {
		reason = genericFailure
	}
	elapsed := r.elapsed()
	from := r.stage
	r.stage = domain.StageFailed
	r.emitElapsed(domain.StageFailed, domain.LevelError, reason, elapsed)
	r.log.Warn().Str("from_stage", string(from)).Dur("elapsed", elapsed).Str("reason", reason).Msg("workflow run failed")

	res := &domain.RunResult{
		RunID:      r.id,
		WorkflowID: r.wf.ID,
		Trigger:    r.trigger,
		Stage:      domain.StageFailed,
		Outcome:    domain.OutcomeFailed,
		Message:    reason,
		Reason:     reason,
		StartedAt:  r.start,
		Elapsed:    elapsed,
	}
	if content != nil {
		res.ContentID = content.ID
		res.MediaURL = content.MediaURL
	}
	return res
}

func (r *run) failContext(err error, content *domain.GeneratedContent) *domain.RunResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return r.fail(fmt.Sprintf("generation timed out after %s", r.e.cfg.RunTimeout), content)
	}
	return r.fail("run cancelled", content)
}

func (r *run) enter(stage domain.RunStage, level domain.NotifyLevel, message string) {
	r.stage = stage
	r.emit(stage, level, message)
}

func (r *run) emit(stage domain.RunStage, level domain.NotifyLevel, message string) {
	r.emitElapsed(stage, level, message, r.elapsed())
}

func (r *run) emitElapsed(stage domain.RunStage, level domain.NotifyLevel, message string, elapsed time.Duration) {
	r.message = message
	r.e.runs.Update(r.wf.ID, r.id, stage, message)
	if r.e.store != nil && !stage.Terminal() {
		ctx, cancel := context.WithTimeout(context.Background(), stageWriteTimeout)
		if err := r.e.store.UpdateStage(ctx, r.id, stage, message); err != nil {
			r.log.Warn().Err(err).Str("stage", string(stage)).Msg("record run stage")
		}
		cancel()
	}
	r.e.notifier.Notify(domain.ProgressEvent{
		RunID:      r.id,
		WorkflowID: r.wf.ID,
		OwnerID:    r.wf.OwnerID,
		Stage:      stage,
		Level:      level,
		Message:    message,
		Elapsed:    elapsed,
		At:         r.e.now(),
	})
}

func (r *run) elapsed() time.Duration {
	if r.start.IsZero() {
		return 0
	}
	return r.e.now().Sub(r.start)
}

func jobFailure(out jobOutcome) (string, bool) {
	if out.err != nil {
		return out.err.Error(), true
	}
	if out.res == nil {
		return "", false
	}
	if msg := strings.TrimSpace(out.res.Error); msg != "" {
		return msg, true
	}
	return "", false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var platformDisplay = map[string]string{
	domain.PlatformTikTok:   "TikTok",
	domain.PlatformLinkedIn: "LinkedIn",
	domain.PlatformYouTube:  "YouTube",
}

func platformName(p string) string {
	if name, ok := platformDisplay[p]; ok {
		return name
	}
	return cases.Title(language.English).String(p)
}

func joinPlatforms(ps []string) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = platformName(p)
	}
	return strings.Join(names, ", ")
}
