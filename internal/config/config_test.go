package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "3000" {
		t.Fatalf("expected default port 3000, got %s", cfg.HTTPPort)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.EphemeralTokenTTL != 72*time.Hour {
		t.Fatalf("expected 72h token ttl, got %v", cfg.EphemeralTokenTTL)
	}
	if cfg.RateLimitMax != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults: %d/%v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is empty")
	}
}
