package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://balance.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetRefreshCron() != "0 2 * * *" {
		t.Fatalf("expected daily 02:00 cron, got %q", cfg.GetRefreshCron())
	}
	if cfg.GetRefreshLocation().String() != "Europe/Madrid" {
		t.Fatalf("expected Europe/Madrid, got %s", cfg.GetRefreshLocation())
	}
	if cfg.GetREERequestTimeout() != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.GetREERequestTimeout())
	}
	if cfg.GetAsynqQueueName() != "balance" {
		t.Fatalf("expected balance queue, got %q", cfg.GetAsynqQueueName())
	}
	if cfg.IsAdminAuthEnabled() {
		t.Fatalf("expected admin auth disabled without secret")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"missing database", "DATABASE_URL", ""},
		{"bad cron", "REFRESH_CRON", "every day"},
		{"bad timezone", "REFRESH_TIMEZONE", "Mars/Olympus"},
		{"bad timeout", "REE_REQUEST_TIMEOUT", "soon"},
		{"zero concurrency", "ASYNQ_CONCURRENCY", "0"},
		{"negative rate", "REFRESH_RATE_LIMIT_PER_MINUTE", "-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "sqlite://balance.db")
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestWildcardOriginEnablesAllowAll(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://balance.db")
	t.Setenv("CORS_ORIGINS", "http://a.test, *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.GetCORSAllowAll() {
		t.Fatalf("expected wildcard origin to enable allow-all")
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.GetCORSOrigins())
	}
}
