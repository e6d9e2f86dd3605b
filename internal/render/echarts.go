package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tinychart/internal/chartcfg"
	"tinychart/internal/surface"
)

// EChartsRenderer renders chart configurations as embeddable ECharts HTML.
// Line and bar types go through the go-echarts API; any other type is
// emitted as a raw option-map snippet initialized by the host page.
type EChartsRenderer struct{}

// NewEChartsRenderer creates the HTML rendering backend.
func NewEChartsRenderer() *EChartsRenderer {
	return &EChartsRenderer{}
}

// Render draws the chart into the target element's content.
func (r *EChartsRenderer) Render(target *surface.Element, cfg chartcfg.RenderConfig) (Handle, error) {
	if target == nil {
		return nil, fmt.Errorf("render target is nil")
	}

	var html string
	var err error
	switch cfg.Type {
	case "line":
		html, err = r.renderLine(cfg)
	case "bar":
		html, err = r.renderBar(cfg)
	default:
		html, err = r.renderSnippet(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("echarts render of %q failed: %w", cfg.Title, err)
	}

	target.SetContent(html)
	target.SetHidden(false)
	return newHandle(target), nil
}

func (r *EChartsRenderer) initOpts(cfg chartcfg.RenderConfig) opts.Initialization {
	width, height := 200, 80
	if w, ok := cfg.Options["width"].(int); ok {
		width = w
	}
	if h, ok := cfg.Options["height"].(int); ok {
		height = h
	}
	return opts.Initialization{
		Width:  fmt.Sprintf("%dpx", width),
		Height: fmt.Sprintf("%dpx", height),
	}
}

func (r *EChartsRenderer) renderLine(cfg chartcfg.RenderConfig) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(r.initOpts(cfg)),
		charts.WithTitleOpts(opts.Title{
			Title: cfg.Title,
		}),
		charts.WithColorsOpts(opts.Colors{cfg.Color}),
	)

	points := make([]opts.LineData, len(cfg.Values))
	for i, v := range cfg.Values {
		points[i] = opts.LineData{Value: v}
	}

	smooth := true
	if s, ok := cfg.Options["smooth"].(bool); ok {
		smooth = s
	}
	line.SetXAxis(cfg.Labels).
		AddSeries(cfg.Title, points).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: smooth}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *EChartsRenderer) renderBar(cfg chartcfg.RenderConfig) (string, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(r.initOpts(cfg)),
		charts.WithTitleOpts(opts.Title{
			Title: cfg.Title,
		}),
		charts.WithColorsOpts(opts.Colors{cfg.Color}),
	)

	points := make([]opts.BarData, len(cfg.Values))
	for i, v := range cfg.Values {
		points[i] = opts.BarData{Value: v}
	}
	bar.SetXAxis(cfg.Labels).AddSeries(cfg.Title, points)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderSnippet emits a raw ECharts option map inside a div+script pair,
// for chart types the typed API does not cover.
func (r *EChartsRenderer) renderSnippet(cfg chartcfg.RenderConfig) (string, error) {
	id := "chart-" + uuidSuffix()

	seriesData := make([]map[string]interface{}, 0, len(cfg.Values))
	for _, v := range cfg.Values {
		seriesData = append(seriesData, map[string]interface{}{"value": v})
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "axis"},
		"grid":    map[string]interface{}{"left": "8%", "right": "4%", "bottom": "8%", "containLabel": true},
		"xAxis":   map[string]interface{}{"type": "category", "data": cfg.Labels},
		"yAxis":   map[string]interface{}{"type": "value"},
		"color":   []string{cfg.Color},
		"series": []interface{}{map[string]interface{}{
			"type": cfg.Type,
			"data": seriesData,
		}},
	}

	optJSON, err := json.Marshal(option)
	if err != nil {
		return "", err
	}

	div := fmt.Sprintf("<div id=%q style=\"width:100%%;height:80px;\"></div>", id)
	script := fmt.Sprintf(`<script>(function(){var el=document.getElementById('%s');if(!el)return;var c=echarts.init(el);c.setOption(%s);})();</script>`, id, string(optJSON))
	return div + "\n" + script, nil
}
