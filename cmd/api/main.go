package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"aisocial/internal/adapter/repo"
	"aisocial/internal/http/handlers"
	httpapi "aisocial/internal/http/httpapi"
	"aisocial/internal/infra"
	"aisocial/internal/infra/credentials"
	"aisocial/internal/infra/geoip"
	"aisocial/internal/middleware"
	"aisocial/internal/progress"
	"aisocial/internal/providers/generation"
	"aisocial/internal/workflow"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	workflows := repo.NewWorkflowRepository(runner)
	posts := repo.NewScheduledPostRepository(runner)
	ledger := repo.NewCreditLedger(runner)
	contents := repo.NewContentRepository(runner)
	runs := repo.NewRunRepository(runner)

	apiKey, err := generation.ResolveAPIKey(ctx, cfg.GenerationAPIKey, credentials.NewStore(runner))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load generation api key from store")
	}
	if apiKey == "" {
		logger.Warn().Msg("generation api key missing, manual runs will fail")
	}
	invoker, err := generation.NewClient(generation.Options{
		APIKey:         apiKey,
		BaseURL:        cfg.GenerationBaseURL,
		Function:       cfg.GenerationFunction,
		Logger:         &logger,
		RequestTimeout: cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation client")
	}

	var lookup middleware.TimeZoneLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip database unavailable, timezone falls back to default")
	} else if resolver != nil {
		defer resolver.Close()
		lookup = resolver.TimeZone
	}

	defaultLoc, _ := time.LoadLocation(cfg.DefaultTimezone)
	hub := progress.NewHub()
	origin := "api-" + uuid.NewString()
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	// scheduled runs execute in the worker; their progress arrives over NOTIFY
	go progress.NewListener(dbpool, origin, hub, logger).Run(listenCtx)
	scheduler := workflow.NewScheduler(workflows, posts, logger,
		workflow.WithHorizon(cfg.ScheduleHorizonDays),
		workflow.WithDefaultLocation(defaultLoc),
	)
	executor := workflow.NewExecutor(workflow.ExecutorDeps{
		Workflows: workflows,
		Contents:  contents,
		Ledger:    ledger,
		Invoker:   invoker,
		Notifier: progress.Multi{
			hub,
			progress.LogNotifier{Logger: logger},
			progress.NewPublisher(runner, origin, logger),
		},
		RunStore: runs,
		Logger:   logger,
	}, workflow.ExecutorConfigFrom(cfg))

	app := &handlers.App{
		Workflows:       workflows,
		Posts:           posts,
		Ledger:          ledger,
		Scheduler:       scheduler,
		Executor:        executor,
		Hub:             hub,
		Logger:          logger,
		Ping:            dbpool.Ping,
		DefaultTimezone: cfg.DefaultTimezone,
		HorizonDays:     cfg.ScheduleHorizonDays,
	}

	router := httpapi.NewRouter(app, httpapi.RouterConfig{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultTimezone: cfg.DefaultTimezone,
		TimeZoneLookup:  lookup,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
