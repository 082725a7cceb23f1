package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	CORSOrigins      []string
	GeoIPDBPath      string
	DefaultTimezone  string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	GenerationBaseURL  string
	GenerationFunction string
	GenerationAPIKey   string
	GenerationTimeout  time.Duration

	CreditCostImage     decimal.Decimal
	CreditCostVideo     decimal.Decimal
	ScheduleHorizonDays int

	ExecPrepareDwell time.Duration
	ExecPollInterval time.Duration
	ExecPublishDwell time.Duration
	ExecRunTimeout   time.Duration
	ExecCreatedSkew  time.Duration

	WorkerCron        string
	WorkerRefreshCron string
	WorkerBatchSize   int
	WorkerConcurrency int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", "UTC"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		GenerationBaseURL:  strings.TrimRight(os.Getenv("GENERATION_BASE_URL"), "/"),
		GenerationFunction: getEnv("GENERATION_FUNCTION", "execute-workflow"),
		GenerationAPIKey:   strings.TrimSpace(os.Getenv("GENERATION_API_KEY")),
		GenerationTimeout:  time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 600)),

		CreditCostImage:     getEnvDecimal("CREDIT_COST_IMAGE", decimal.NewFromInt(2)),
		CreditCostVideo:     getEnvDecimal("CREDIT_COST_VIDEO", decimal.NewFromInt(10)),
		ScheduleHorizonDays: getEnvInt("SCHEDULE_HORIZON_DAYS", 7),

		ExecPrepareDwell: getEnvDuration("EXEC_PREPARE_DWELL", 3*time.Second),
		ExecPollInterval: getEnvDuration("EXEC_POLL_INTERVAL", 3*time.Second),
		ExecPublishDwell: getEnvDuration("EXEC_PUBLISH_DWELL", 10*time.Second),
		ExecRunTimeout:   getEnvDuration("EXEC_RUN_TIMEOUT", 10*time.Minute),
		ExecCreatedSkew:  getEnvDuration("EXEC_CREATED_SKEW", 5*time.Second),

		WorkerCron:        getEnv("WORKER_CRON", "@every 30s"),
		WorkerRefreshCron: getEnv("WORKER_REFRESH_CRON", "@every 6h"),
		WorkerBatchSize:   getEnvInt("WORKER_BATCH_SIZE", 50),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	if cfg.ScheduleHorizonDays < 1 {
		cfg.ScheduleHorizonDays = 7
	}
	if cfg.ExecPollInterval <= 0 {
		cfg.ExecPollInterval = 3 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("3s", "10m") or bare seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil && d.IsPositive() {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
