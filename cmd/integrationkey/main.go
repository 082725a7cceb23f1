package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"aisocial/internal/infra"
	"aisocial/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag  string
		noteFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the generation function (fallbacks to GENERATION_API_KEY)")
	flag.StringVar(&noteFlag, "note", "", "optional note stored with the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GENERATION_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "generation API key is required via -key or GENERATION_API_KEY")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "integrationkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	props := map[string]any{"stored_at": time.Now().UTC().Format(time.RFC3339)}
	if note := strings.TrimSpace(noteFlag); note != "" {
		props["note"] = note
	}
	if err := store.SetGenerationAPIKey(ctx, key, props); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist generation api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("generation API key stored successfully")
}
