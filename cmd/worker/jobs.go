package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"aisocial/internal/workflow"
)

type dispatchRunner interface {
	Tick(ctx context.Context) (workflow.DispatchStats, error)
	Refresh(ctx context.Context) (int, error)
}

func tickJob(ctx context.Context, d dispatchRunner, logger zerolog.Logger) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		stats, err := d.Tick(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("worker: dispatch tick failed")
			return
		}
		if stats.Claimed == 0 {
			return
		}
		logger.Info().
			Int("claimed", stats.Claimed).
			Int("published", stats.Published).
			Int("failed", stats.Failed).
			Int("rescheduled", stats.Rescheduled).
			Msg("worker: dispatch tick")
	})
}

func refreshJob(ctx context.Context, d dispatchRunner, logger zerolog.Logger) cron.Job {
	return cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		n, err := d.Refresh(ctx)
		if err != nil {
			logger.Error().Err(err).Int("refreshed", n).Msg("worker: schedule refresh failed")
			return
		}
		logger.Info().Int("refreshed", n).Msg("worker: schedule refresh")
	})
}

// cronLogger adapts zerolog to cron's key/value logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(pairs(keysAndValues)).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(pairs(keysAndValues)).Msg("cron: " + msg)
}

func pairs(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
