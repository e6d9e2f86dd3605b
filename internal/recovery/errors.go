// Package recovery implements per-chart failure handling: bounded retry
// with backoff, circuit breaking, and a bounded error history. The retry
// loop is an explicit state machine driven by injected Clock and Scheduler
// implementations so it can be tested without real timers.
package recovery

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a handled failure.
type ErrorKind string

const (
	KindFetchFailure      ErrorKind = "fetch_failure"
	KindDataFormat        ErrorKind = "data_format_error"
	KindTargetMissing     ErrorKind = "render_target_missing"
	KindRenderCreation    ErrorKind = "render_creation_failure"
	KindInvalidDefinition ErrorKind = "invalid_definition"
	KindUnknown           ErrorKind = "unknown"
)

// Error attaches a kind and chart id to an underlying failure.
type Error struct {
	Kind    ErrorKind
	ChartID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (chart %s): %v", e.Kind, e.ChartID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and chart id.
func NewError(kind ErrorKind, chartID string, err error) *Error {
	return &Error{Kind: kind, ChartID: chartID, Err: err}
}

// Classify returns the kind of err, or KindUnknown for unclassified errors.
func Classify(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// Retryable reports whether a failure of this kind can be fixed by
// retrying. Structural misconfiguration cannot.
func (k ErrorKind) Retryable() bool {
	return k != KindInvalidDefinition
}
