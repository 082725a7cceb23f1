package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("EXEC_POLL_INTERVAL", "")
	t.Setenv("CREDIT_COST_VIDEO", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ExecPollInterval != 3*time.Second {
		t.Fatalf("ExecPollInterval = %s, want 3s", cfg.ExecPollInterval)
	}
	if cfg.ExecPublishDwell != 10*time.Second {
		t.Fatalf("ExecPublishDwell = %s, want 10s", cfg.ExecPublishDwell)
	}
	if cfg.CreditCostVideo.String() != "10" {
		t.Fatalf("CreditCostVideo = %s, want 10", cfg.CreditCostVideo)
	}
	if cfg.ScheduleHorizonDays != 7 {
		t.Fatalf("ScheduleHorizonDays = %d, want 7", cfg.ScheduleHorizonDays)
	}
	if cfg.WorkerCron != "@every 30s" {
		t.Fatalf("WorkerCron = %q", cfg.WorkerCron)
	}
}

func TestLoadConfigParsesDurationsAndDecimals(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("EXEC_POLL_INTERVAL", "500ms")
	t.Setenv("EXEC_PREPARE_DWELL", "2")
	t.Setenv("CREDIT_COST_IMAGE", "1.50")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ExecPollInterval != 500*time.Millisecond {
		t.Fatalf("ExecPollInterval = %s, want 500ms", cfg.ExecPollInterval)
	}
	if cfg.ExecPrepareDwell != 2*time.Second {
		t.Fatalf("ExecPrepareDwell = %s, want 2s", cfg.ExecPrepareDwell)
	}
	if cfg.CreditCostImage.String() != "1.5" {
		t.Fatalf("CreditCostImage = %s, want 1.5", cfg.CreditCostImage)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("CORSOrigins mismatch: %#v", cfg.CORSOrigins)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEFAULT_TIMEZONE", "Mars/Olympus")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
