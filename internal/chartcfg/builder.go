// Package chartcfg turns a fetched series and a color into the declarative
// render configuration the rendering backends consume. The builder is
// stateless; everything it needs arrives as arguments.
package chartcfg

import (
	"fmt"

	"tinychart/internal/models"
)

// RenderConfig is the declarative {type, data, options} shape handed to a
// rendering backend.
type RenderConfig struct {
	Type    string                 `json:"type"`
	Title   string                 `json:"title,omitempty"`
	Labels  []string               `json:"labels"`
	Values  []float64              `json:"values"`
	Color   string                 `json:"color"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Build produces a render configuration for one chart from its definition,
// its dataset, and the resolved color. CustomConfig entries are merged into
// Options last, so a definition can override any computed option.
func Build(def models.ChartDefinition, data *models.Dataset, color string) (RenderConfig, error) {
	if data == nil {
		return RenderConfig{}, fmt.Errorf("cannot build render config for %q without data", def.ID)
	}

	chartType := "line"
	if t, ok := def.CustomConfig["type"].(string); ok && t != "" {
		chartType = t
	}

	labels := make([]string, len(data.Values))
	for i := range data.Values {
		labels[i] = fmt.Sprintf("%d", i)
	}

	options := map[string]interface{}{
		"smooth":  true,
		"animate": false,
		"height":  80,
		"width":   200,
	}
	if data.Fallback {
		// Degraded series render dimmed so a fallback is visually distinct
		options["opacity"] = 0.4
		options["degraded"] = true
	}
	for k, v := range def.CustomConfig {
		if k == "type" {
			continue
		}
		options[k] = v
	}

	return RenderConfig{
		Type:    chartType,
		Title:   def.Title,
		Labels:  labels,
		Values:  data.Values,
		Color:   color,
		Options: options,
	}, nil
}

// BuildWithStrategy resolves the definition's named color strategy and
// builds the render configuration in one step. An unknown strategy name
// falls back to the default strategy rather than failing the chart.
func BuildWithStrategy(def models.ChartDefinition, data *models.Dataset) (RenderConfig, bool, error) {
	strategy, known := ResolveStrategy(def.ColorStrategy)
	cfg, err := Build(def, data, strategy(def, data))
	return cfg, known, err
}
