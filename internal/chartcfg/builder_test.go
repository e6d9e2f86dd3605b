package chartcfg

import (
	"testing"
	"time"

	"tinychart/internal/models"
)

func sampleDataset(values []float64) *models.Dataset {
	return &models.Dataset{
		Key:       "seriesA|/api/gdp",
		Values:    values,
		Source:    models.SourceSeriesA,
		FetchedAt: time.Now(),
	}
}

func TestBuildDefaults(t *testing.T) {
	def := models.ChartDefinition{ID: "gdp", RenderTargetID: "t-gdp", Title: "GDP"}
	cfg, err := Build(def, sampleDataset([]float64{1, 2, 3}), "#3366cc")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if cfg.Type != "line" {
		t.Errorf("expected default type line, got %s", cfg.Type)
	}
	if len(cfg.Labels) != 3 || len(cfg.Values) != 3 {
		t.Errorf("labels/values length mismatch: %d/%d", len(cfg.Labels), len(cfg.Values))
	}
	if cfg.Color != "#3366cc" {
		t.Errorf("color not carried through: %s", cfg.Color)
	}
	if cfg.Options["smooth"] != true {
		t.Error("expected smooth option by default")
	}
}

func TestBuildCustomConfigOverrides(t *testing.T) {
	def := models.ChartDefinition{
		ID:           "m2",
		CustomConfig: map[string]interface{}{"type": "bar", "height": 120},
	}
	cfg, err := Build(def, sampleDataset([]float64{5, 6}), "#000")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if cfg.Type != "bar" {
		t.Errorf("custom type not applied: %s", cfg.Type)
	}
	if cfg.Options["height"] != 120 {
		t.Errorf("custom height not applied: %v", cfg.Options["height"])
	}
	if _, ok := cfg.Options["type"]; ok {
		t.Error("type must not leak into options")
	}
}

func TestBuildFallbackIsDimmed(t *testing.T) {
	ds := sampleDataset([]float64{1, 1, 1})
	ds.Fallback = true

	cfg, err := Build(models.ChartDefinition{ID: "x"}, ds, "#000")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Options["degraded"] != true {
		t.Error("fallback dataset should mark config degraded")
	}
}

func TestBuildNilData(t *testing.T) {
	if _, err := Build(models.ChartDefinition{ID: "x"}, nil, "#000"); err == nil {
		t.Error("Build with nil data should fail")
	}
}

func TestResolveStrategy(t *testing.T) {
	if _, known := ResolveStrategy("threshold"); !known {
		t.Error("threshold should be a known strategy")
	}
	if _, known := ResolveStrategy(""); !known {
		t.Error("empty name should resolve to the default strategy")
	}
	if _, known := ResolveStrategy("plasma"); known {
		t.Error("unknown strategy should report not known")
	}
}

func TestIndicatorColorIsStable(t *testing.T) {
	def := models.ChartDefinition{ID: "cpi"}
	ds := sampleDataset([]float64{1})
	a := indicatorColor(def, ds)
	b := indicatorColor(def, ds)
	if a != b {
		t.Error("indicator color must be stable for the same id")
	}
}

func TestThresholdColor(t *testing.T) {
	def := models.ChartDefinition{ID: "x"}

	if c := thresholdColor(def, sampleDataset([]float64{1, 5})); c != trendUpColor {
		t.Errorf("rising series should be green, got %s", c)
	}
	if c := thresholdColor(def, sampleDataset([]float64{5, 1})); c != trendDownColor {
		t.Errorf("falling series should be red, got %s", c)
	}

	fb := sampleDataset([]float64{1, 5})
	fb.Fallback = true
	if c := thresholdColor(def, fb); c != fallbackColor {
		t.Errorf("fallback series should use the fallback color, got %s", c)
	}
}
