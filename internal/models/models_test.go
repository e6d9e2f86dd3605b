package models

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	valid := ChartDefinition{
		ID:             "gdp-growth",
		RenderTargetID: "target-gdp-growth",
		DataSource:     DataSourceSpec{Kind: SourceSeriesA, Endpoint: "/api/indicators/gdp"},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid definition rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ChartDefinition)
	}{
		{"missing id", func(d *ChartDefinition) { d.ID = "" }},
		{"missing target", func(d *ChartDefinition) { d.RenderTargetID = "" }},
		{"missing endpoint", func(d *ChartDefinition) { d.DataSource.Endpoint = "" }},
		{"unknown kind", func(d *ChartDefinition) { d.DataSource.Kind = "mystery" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			if err := def.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	a := DataSourceSpec{Kind: SourceSeriesA, Endpoint: "/api/a"}
	b := DataSourceSpec{Kind: SourceSeriesB, Endpoint: "/api/a"}
	if a.CacheKey() == b.CacheKey() {
		t.Error("different kinds with same endpoint must not share a cache key")
	}

	withTransform := DataSourceSpec{Kind: SourceSeriesA, Endpoint: "/api/a", Transform: "pct"}
	if a.CacheKey() != withTransform.CacheKey() {
		t.Error("transform must not affect the cache key")
	}
}

func TestCloneIsolatesCustomConfig(t *testing.T) {
	def := ChartDefinition{
		ID:           "m2",
		CustomConfig: map[string]interface{}{"height": 120},
	}
	clone := def.Clone()
	clone.CustomConfig["height"] = 240

	if def.CustomConfig["height"] != 120 {
		t.Error("mutating a clone leaked into the original definition")
	}
}

func TestBreakerActive(t *testing.T) {
	now := time.Now()
	cb := CircuitBreakerState{ChartID: "x", ActivatedAt: now, ResetAt: now.Add(5 * time.Minute)}

	if !cb.Active(now.Add(time.Minute)) {
		t.Error("breaker should be active before ResetAt")
	}
	if cb.Active(now.Add(5 * time.Minute)) {
		t.Error("breaker should be expired at ResetAt")
	}
}
