package render

import (
	"strings"
	"testing"

	"tinychart/internal/chartcfg"
	"tinychart/internal/surface"
)

func lineConfig() chartcfg.RenderConfig {
	return chartcfg.RenderConfig{
		Type:   "line",
		Title:  "GDP Growth",
		Labels: []string{"0", "1", "2"},
		Values: []float64{1.1, 2.2, 3.3},
		Color:  "#3366cc",
		Options: map[string]interface{}{
			"smooth": true,
			"width":  200,
			"height": 80,
		},
	}
}

func TestEChartsRenderLine(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-gdp", "div")

	h, err := NewEChartsRenderer().Render(target, lineConfig())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if h.ID() == "" {
		t.Error("handle should carry an id")
	}
	if target.Content() == "" {
		t.Error("render should populate the target content")
	}
	if !strings.Contains(target.Content(), "echarts") {
		t.Error("expected an echarts snippet in the rendered content")
	}
}

func TestEChartsRenderSnippetForOtherTypes(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-x", "div")

	cfg := lineConfig()
	cfg.Type = "scatter"
	if _, err := NewEChartsRenderer().Render(target, cfg); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(target.Content(), `"type":"scatter"`) {
		t.Errorf("raw snippet should carry the series type, got: %s", target.Content())
	}
}

func TestRenderNilTarget(t *testing.T) {
	if _, err := NewEChartsRenderer().Render(nil, lineConfig()); err == nil {
		t.Error("nil target must be a render error")
	}
	if _, err := NewImageRenderer().Render(nil, lineConfig()); err == nil {
		t.Error("nil target must be a render error")
	}
}

func TestHandleDestroyIsIdempotent(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-d", "div")

	h, err := NewEChartsRenderer().Render(target, lineConfig())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	h.Destroy()
	if target.Content() != "" {
		t.Error("Destroy should clear the target content")
	}
	h.Destroy() // second call is a no-op
}

func TestImageRenderer(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-img", "div")

	_, err := NewImageRenderer().Render(target, lineConfig())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(target.Content(), "data:image/png;base64,") {
		t.Error("image renderer should embed a PNG data URI")
	}
}

func TestImageRendererEmptySeries(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-e", "div")

	cfg := lineConfig()
	cfg.Values = nil
	if _, err := NewImageRenderer().Render(target, cfg); err == nil {
		t.Error("empty series must be a render error")
	}
}

func TestErrorPlaceholder(t *testing.T) {
	doc := surface.NewDocument()
	target, _ := doc.Create("t-p", "div")

	RenderErrorPlaceholder(target, "creation failed")
	if !IsErrorPlaceholder(target) {
		t.Error("placeholder marker missing")
	}
	if !strings.Contains(target.Content(), "creation failed") {
		t.Error("placeholder should carry the message")
	}
	if !strings.Contains(target.Content(), "pointer-events:none") {
		t.Error("placeholder must be non-interactive")
	}

	// nil target is tolerated
	RenderErrorPlaceholder(nil, "x")
}

func TestHexToColor(t *testing.T) {
	c := hexToColor("#28a745")
	if c.R != 0x28 || c.G != 0xa7 || c.B != 0x45 {
		t.Errorf("hex parse wrong: %+v", c)
	}
	fallback := hexToColor("bogus")
	if fallback.B != 204 {
		t.Errorf("bad hex should fall back to theme blue, got %+v", fallback)
	}
}
