package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "")
	t.Setenv("RECONNECT_ATTEMPTS", "")
	cfg := FromEnv()
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.ReconnectAttempts != 5 || cfg.ReconnectDelay != time.Second {
		t.Fatalf("reconnect = %d/%v", cfg.ReconnectAttempts, cfg.ReconnectDelay)
	}
	if cfg.BaseURL() != "http://localhost:8000/api" {
		t.Fatalf("base = %s", cfg.BaseURL())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("API_URL", "https://kpi.example.com/")
	t.Setenv("API_PREFIX", "/v1")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("TIMEZONE", "Not/AZone")
	cfg := FromEnv()
	if cfg.BaseURL() != "https://kpi.example.com/v1" {
		t.Fatalf("base = %s", cfg.BaseURL())
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Location() != time.UTC {
		t.Fatal("unknown timezone should fall back to UTC")
	}
}
