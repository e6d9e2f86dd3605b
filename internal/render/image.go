package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tinychart/internal/chartcfg"
	"tinychart/internal/surface"
)

// ImageRenderer renders chart configurations as static PNG sparklines,
// embedded as data URIs. Used for hosts that cannot execute scripts.
type ImageRenderer struct{}

// NewImageRenderer creates the PNG rendering backend.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{}
}

// Render draws a PNG sparkline into the target element's content.
func (r *ImageRenderer) Render(target *surface.Element, cfg chartcfg.RenderConfig) (Handle, error) {
	if target == nil {
		return nil, fmt.Errorf("render target is nil")
	}
	if len(cfg.Values) == 0 {
		return nil, fmt.Errorf("cannot render %q: empty series", cfg.Title)
	}

	width, height := 200, 80
	if w, ok := cfg.Options["width"].(int); ok {
		width = w
	}
	if h, ok := cfg.Options["height"].(int); ok {
		height = h
	}

	xValues := make([]float64, len(cfg.Values))
	for i := range cfg.Values {
		xValues[i] = float64(i)
	}

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: cfg.Title,
				Style: chart.Style{
					StrokeColor: hexToColor(cfg.Color),
					StrokeWidth: 2,
				},
				XValues: xValues,
				YValues: cfg.Values,
			},
		},
		XAxis: chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{Style: chart.Hidden()},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("png render of %q failed: %w", cfg.Title, err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	target.SetContent(fmt.Sprintf(`<img alt=%q src="data:image/png;base64,%s"/>`, cfg.Title, encoded))
	target.SetHidden(false)
	return newHandle(target), nil
}

// hexToColor parses a #rrggbb color, defaulting to the theme blue.
func hexToColor(s string) drawing.Color {
	if len(s) != 7 || s[0] != '#' {
		return drawing.Color{R: 51, G: 102, B: 204, A: 255}
	}
	r, err1 := strconv.ParseUint(s[1:3], 16, 8)
	g, err2 := strconv.ParseUint(s[3:5], 16, 8)
	b, err3 := strconv.ParseUint(s[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return drawing.Color{R: 51, G: 102, B: 204, A: 255}
	}
	return drawing.Color{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}
