package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the chart lifecycle service
type Config struct {
	// Server configuration
	Port string `env:"PORT,default=8982"`

	// Render queue configuration
	BatchSize  int           `env:"BATCH_SIZE,default=10"`
	BatchDelay time.Duration `env:"BATCH_DELAY,default=16ms"`

	// Retry and circuit breaker configuration
	MaxRetries      int           `env:"MAX_RETRIES,default=3"`
	RetryDelay      time.Duration `env:"RETRY_DELAY,default=1s"`
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN,default=5m"`
	MaxLogSize      int           `env:"MAX_LOG_SIZE,default=100"`

	// Data manager configuration
	CacheTimeout          time.Duration `env:"CACHE_TIMEOUT,default=5m"`
	MaxConcurrentRequests int           `env:"MAX_CONCURRENT_REQUESTS,default=8"`
	FetchTimeout          time.Duration `env:"FETCH_TIMEOUT,default=30s"`

	// Data source base URLs
	SeriesABaseURL string `env:"SERIES_A_BASE_URL,default=https://api.example.com/indicators"`
	SeriesBBaseURL string `env:"SERIES_B_BASE_URL,default=https://api.example.com/aggregates"`

	// Orchestrator schedule
	RefreshInterval     time.Duration `env:"REFRESH_INTERVAL,default=5m"`
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL,default=1h"`

	// Snapshot storage configuration
	SnapshotDir string `env:"SNAPSHOT_DIR,default=./snapshots"`
	GCSBucket   string `env:"GCS_BUCKET"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=text"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot drive the pipeline
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("max concurrent requests must be positive, got %d", c.MaxConcurrentRequests)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.MaxLogSize <= 0 {
		return fmt.Errorf("max log size must be positive, got %d", c.MaxLogSize)
	}
	return nil
}
