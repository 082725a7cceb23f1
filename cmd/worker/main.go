package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"aisocial/internal/adapter/repo"
	"aisocial/internal/infra"
	"aisocial/internal/infra/credentials"
	"aisocial/internal/progress"
	"aisocial/internal/providers/generation"
	"aisocial/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	workflows := repo.NewWorkflowRepository(runner)
	posts := repo.NewScheduledPostRepository(runner)

	apiKey, err := generation.ResolveAPIKey(ctx, cfg.GenerationAPIKey, credentials.NewStore(runner))
	if err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load generation api key from store")
	}
	invoker, err := generation.NewClient(generation.Options{
		APIKey:         apiKey,
		BaseURL:        cfg.GenerationBaseURL,
		Function:       cfg.GenerationFunction,
		Logger:         &logger,
		RequestTimeout: cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure generation client")
	}
	if !invoker.HasCredentials() {
		logger.Warn().Msg("worker: generation api key missing, scheduled runs will fail")
	}

	defaultLoc, _ := time.LoadLocation(cfg.DefaultTimezone)
	scheduler := workflow.NewScheduler(workflows, posts, logger,
		workflow.WithHorizon(cfg.ScheduleHorizonDays),
		workflow.WithDefaultLocation(defaultLoc),
	)
	executor := workflow.NewExecutor(workflow.ExecutorDeps{
		Workflows: workflows,
		Contents:  repo.NewContentRepository(runner),
		Ledger:    repo.NewCreditLedger(runner),
		Invoker:   invoker,
		Notifier: progress.Multi{
			progress.LogNotifier{Logger: logger},
			progress.NewPublisher(runner, "worker-"+uuid.NewString(), logger),
		},
		RunStore: repo.NewRunRepository(runner),
		Logger:   logger,
	}, workflow.ExecutorConfigFrom(cfg))
	dispatcher := workflow.NewDispatcher(posts, workflows, executor, scheduler, logger, cfg.WorkerBatchSize, cfg.WorkerConcurrency)

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := c.AddJob(cfg.WorkerCron, tickJob(ctx, dispatcher, logger)); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.WorkerCron).Msg("worker: invalid WORKER_CRON")
	}
	if _, err := c.AddJob(cfg.WorkerRefreshCron, refreshJob(ctx, dispatcher, logger)); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.WorkerRefreshCron).Msg("worker: invalid WORKER_REFRESH_CRON")
	}

	// extend every rolling window once at boot so a restart never leaves a gap
	refreshJob(ctx, dispatcher, logger).Run()

	c.Start()
	logger.Info().Str("tick", cfg.WorkerCron).Str("refresh", cfg.WorkerRefreshCron).Msg("worker: started")

	<-ctx.Done()
	logger.Info().Msg("worker: shutting down, waiting for running jobs")
	<-c.Stop().Done()
	logger.Info().Msg("worker: stopped")
}
