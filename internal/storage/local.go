package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LocalStore persists snapshots on the local file system.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local snapshot store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", baseDir, err)
	}

	return &LocalStore{
		baseDir: baseDir,
	}, nil
}

// Close is a no-op for local storage (implements same interface as GCSStore)
func (l *LocalStore) Close() error {
	return nil
}

// StoreFile stores a file in the snapshot folder for the given timestamp.
func (l *LocalStore) StoreFile(ctx context.Context, fileData []byte, filename string, timestamp time.Time) error {
	filePath := filepath.Join(l.baseDir, GenerateSnapshotFolderPath(timestamp), filename)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filePath, fileData, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	return nil
}

// GetFile retrieves a file from local storage. The path is relative to
// the store's base directory.
func (l *LocalStore) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.baseDir, filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// GetLatestSnapshot returns the path of the most recent snapshot.
func (l *LocalStore) GetLatestSnapshot() (string, error) {
	snapshots, err := l.ListSnapshots(context.Background(), 1)
	if err != nil {
		return "", err
	}

	if len(snapshots) == 0 {
		return "", fmt.Errorf("no snapshots found")
	}

	return snapshots[0], nil
}

// ListSnapshots lists recent snapshots, sorted newest first.
func (l *LocalStore) ListSnapshots(ctx context.Context, limit int) ([]string, error) {
	var paths []string

	err := filepath.Walk(l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors and continue
		}

		if info.Name() == "index.html" {
			relPath, _ := filepath.Rel(l.baseDir, path)
			paths = append(paths, relPath)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk snapshot directory: %w", err)
	}

	// The folder layout is date-ordered, so a reverse alphabetical sort
	// yields newest first
	sort.Strings(paths)
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}

	if limit > 0 && limit < len(paths) {
		paths = paths[:limit]
	}

	return paths, nil
}
