package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"aisocial/internal/infra"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	logger := infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", "migrate").Logger()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	applied, err := infra.Migrate(ctx, dbURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	if len(applied) == 0 {
		logger.Info().Msg("schema up to date")
		return
	}
	logger.Info().Strs("applied", applied).Msg("migrations applied")
}
