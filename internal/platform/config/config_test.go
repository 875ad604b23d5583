package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.PurgeCheckInterval != time.Hour {
		t.Fatalf("expected 1h purge check interval, got %s", cfg.PurgeCheckInterval)
	}
	if cfg.PurgeInterval != 24*time.Hour {
		t.Fatalf("expected 24h purge interval, got %s", cfg.PurgeInterval)
	}
	if cfg.ExpiryInterval != 6*time.Hour {
		t.Fatalf("expected 6h expiry interval, got %s", cfg.ExpiryInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PURGE_CHECK_INTERVAL", "30m")
	t.Setenv("METRICS_ENABLED", "false")
	cfg := Load()
	if cfg.PurgeCheckInterval != 30*time.Minute {
		t.Fatalf("expected 30m purge check interval, got %s", cfg.PurgeCheckInterval)
	}
	if cfg.MetricsEnabled {
		t.Fatal("expected metrics disabled")
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	cfg.DatabaseURL = "postgres://localhost/pfm"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.PurgeInterval = time.Minute
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when purge interval is shorter than check interval")
	}

	cfg = Load()
	cfg.DatabaseURL = "postgres://localhost/pfm"
	cfg.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}
}
