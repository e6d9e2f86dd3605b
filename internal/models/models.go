package models

import (
	"fmt"
	"time"
)

// SourceKind identifies a known data source variant. The set is closed:
// dispatch on a kind outside this list fails loudly instead of falling
// through to a generic path.
type SourceKind string

const (
	SourceSeriesA SourceKind = "seriesA"
	SourceSeriesB SourceKind = "seriesB"
	SourceCustom  SourceKind = "custom"
	SourceFeed    SourceKind = "feed"
)

// KnownKind reports whether k is one of the closed set of source kinds.
func KnownKind(k SourceKind) bool {
	switch k {
	case SourceSeriesA, SourceSeriesB, SourceCustom, SourceFeed:
		return true
	}
	return false
}

// DataSourceSpec describes where and how to fetch one time series.
// It doubles as the cache identity for the fetched dataset.
type DataSourceSpec struct {
	Kind      SourceKind `json:"kind"`
	Endpoint  string     `json:"endpoint"`
	Transform string     `json:"transform,omitempty"`
}

// CacheKey returns the cache identity for this spec. Two specs with the
// same kind and endpoint share one cached dataset regardless of transform.
func (s DataSourceSpec) CacheKey() string {
	return string(s.Kind) + "|" + s.Endpoint
}

// ChartDefinition is the declarative description of one chart instance.
// Definitions are copied on submission; re-submitting the same ID replaces
// the prior definition.
type ChartDefinition struct {
	ID             string                 `json:"id"`
	RenderTargetID string                 `json:"renderTargetId"`
	Title          string                 `json:"title"`
	DataSource     DataSourceSpec         `json:"dataSource"`
	ColorStrategy  string                 `json:"colorStrategy,omitempty"`
	CustomConfig   map[string]interface{} `json:"customConfig,omitempty"`
}

// Validate checks the structural fields of a definition. A validation
// failure is a static configuration error: retrying cannot fix it, so
// callers report it immediately instead of routing it through recovery.
func (d ChartDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("chart definition missing id")
	}
	if d.RenderTargetID == "" {
		return fmt.Errorf("chart definition %q missing render target id", d.ID)
	}
	if d.DataSource.Endpoint == "" {
		return fmt.Errorf("chart definition %q missing data source endpoint", d.ID)
	}
	if !KnownKind(d.DataSource.Kind) {
		return fmt.Errorf("chart definition %q has unknown source kind %q", d.ID, d.DataSource.Kind)
	}
	return nil
}

// Clone returns a deep copy of the definition so a caller mutating its own
// copy after submission cannot affect a queued or stored definition.
func (d ChartDefinition) Clone() ChartDefinition {
	out := d
	if d.CustomConfig != nil {
		out.CustomConfig = make(map[string]interface{}, len(d.CustomConfig))
		for k, v := range d.CustomConfig {
			out.CustomConfig[k] = v
		}
	}
	return out
}

// Dataset is one fetched (or fallback) time series. Datasets are never
// mutated after insertion into the cache; an expired entry is replaced
// wholesale by a new Dataset.
type Dataset struct {
	Key       string     `json:"key"`
	Values    []float64  `json:"values"`
	Source    SourceKind `json:"source"`
	FetchedAt time.Time  `json:"fetchedAt"`
	Fallback  bool       `json:"fallback,omitempty"`
}

// Age returns how old the dataset is relative to now.
func (d *Dataset) Age(now time.Time) time.Duration {
	return now.Sub(d.FetchedAt)
}

// CircuitBreakerState records a time-boxed suppression of retries for
// one failing chart id.
type CircuitBreakerState struct {
	ChartID     string    `json:"chartId"`
	ActivatedAt time.Time `json:"activatedAt"`
	ResetAt     time.Time `json:"resetAt"`
}

// Active reports whether the breaker still suppresses retries at now.
func (c CircuitBreakerState) Active(now time.Time) bool {
	return now.Before(c.ResetAt)
}

// ErrorLogEntry is one handled error, kept in a bounded ring.
type ErrorLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	ChartID   string    `json:"chartId"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}
