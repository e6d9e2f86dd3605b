package storage

import (
	"context"
	"time"
)

// SnapshotStore defines the interface for persisting rendered dashboard
// snapshots and their sidecar files.
type SnapshotStore interface {
	// Close closes the store
	Close() error

	// StoreFile stores a file in the snapshot folder for the given timestamp
	StoreFile(ctx context.Context, fileData []byte, filename string, timestamp time.Time) error

	// GetFile retrieves a file from the given path
	GetFile(ctx context.Context, filePath string) ([]byte, error)

	// ListSnapshots lists recent snapshots, newest first
	ListSnapshots(ctx context.Context, limit int) ([]string, error)

	// GetLatestSnapshot returns the path to the most recent snapshot
	GetLatestSnapshot() (string, error)
}
