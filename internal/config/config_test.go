package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any ambient overrides so defaults are exercised
	for _, key := range []string{"BATCH_SIZE", "BATCH_DELAY", "MAX_RETRIES", "CACHE_TIMEOUT", "MAX_CONCURRENT_REQUESTS", "MAX_LOG_SIZE", "PORT"} {
		os.Unsetenv(key)
	}

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BatchSize != 10 {
		t.Errorf("expected default BatchSize 10, got %d", cfg.BatchSize)
	}
	if cfg.BatchDelay != 16*time.Millisecond {
		t.Errorf("expected default BatchDelay 16ms, got %v", cfg.BatchDelay)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected default MaxRetries 3, got %d", cfg.MaxRetries)
	}
	if cfg.CacheTimeout != 5*time.Minute {
		t.Errorf("expected default CacheTimeout 5m, got %v", cfg.CacheTimeout)
	}
	if cfg.MaxConcurrentRequests != 8 {
		t.Errorf("expected default MaxConcurrentRequests 8, got %d", cfg.MaxConcurrentRequests)
	}
	if cfg.MaxLogSize != 100 {
		t.Errorf("expected default MaxLogSize 100, got %d", cfg.MaxLogSize)
	}
	if cfg.BreakerCooldown != 5*time.Minute {
		t.Errorf("expected default BreakerCooldown 5m, got %v", cfg.BreakerCooldown)
	}
	if cfg.Port != "8982" {
		t.Errorf("expected default Port 8982, got %s", cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Setenv("BATCH_SIZE", "25")
	os.Setenv("RETRY_DELAY", "250ms")
	defer os.Unsetenv("BATCH_SIZE")
	defer os.Unsetenv("RETRY_DELAY")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BatchSize != 25 {
		t.Errorf("expected BatchSize 25, got %d", cfg.BatchSize)
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected RetryDelay 250ms, got %v", cfg.RetryDelay)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentRequests = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero log size", func(c *Config) { c.MaxLogSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BatchSize: 10, MaxConcurrentRequests: 8, MaxRetries: 3, MaxLogSize: 100}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	os.Setenv("APP_VERSION", "9.9.9")
	defer os.Unsetenv("APP_VERSION")

	if v := GetVersion(); v != "9.9.9" {
		t.Errorf("expected version from environment, got %s", v)
	}
}
