package storage

import (
	"testing"
	"time"
)

func TestGenerateSnapshotFolderPath(t *testing.T) {
	ts := time.Date(2026, 3, 5, 9, 7, 2, 0, time.UTC)
	got := GenerateSnapshotFolderPath(ts)
	want := "2026/03/05/Snapshot-2026-03-05-09-07-02"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGetContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"index.html", "text/html"},
		{"stats.json", "application/json"},
		{"chart.png", "image/png"},
		{"notes.md", "text/markdown"},
		{"data.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := GetContentType(tt.filename); got != tt.want {
			t.Errorf("GetContentType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
