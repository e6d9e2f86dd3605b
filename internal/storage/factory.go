package storage

import (
	"context"
	"fmt"

	"tinychart/internal/config"
)

// NewSnapshotStore creates a snapshot store appropriate for the configured
// environment: GCS when a bucket is configured for production, the local
// file system otherwise.
func NewSnapshotStore(ctx context.Context, cfg *config.Config) (SnapshotStore, error) {
	if cfg.Environment == "production" && cfg.GCSBucket != "" {
		store, err := NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS snapshot store: %w", err)
		}
		return store, nil
	}

	dir := cfg.SnapshotDir
	if dir == "" {
		dir = "snapshots"
	}
	store, err := NewLocalStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local snapshot store: %w", err)
	}
	return store, nil
}
