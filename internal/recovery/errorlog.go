package recovery

import (
	"sync"
	"time"

	"tinychart/internal/models"
)

// ErrorLog is a bounded ring of handled errors. When full, the oldest
// entry is evicted first.
type ErrorLog struct {
	mu      sync.Mutex
	entries []models.ErrorLogEntry
	max     int
}

// NewErrorLog creates a log holding at most max entries.
func NewErrorLog(max int) *ErrorLog {
	if max <= 0 {
		max = 100
	}
	return &ErrorLog{max: max}
}

// Append records one handled error.
func (l *ErrorLog) Append(chartID string, kind ErrorKind, message string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, models.ErrorLogEntry{
		Timestamp: at,
		ChartID:   chartID,
		Kind:      string(kind),
		Message:   message,
	})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// Recent returns up to limit entries, newest last. limit <= 0 returns all.
func (l *ErrorLog) Recent(limit int) []models.ErrorLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ErrorLogEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the current entry count.
func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// CountByKind tallies entries per error kind.
func (l *ErrorLog) CountByKind() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int)
	for _, e := range l.entries {
		out[e.Kind]++
	}
	return out
}
