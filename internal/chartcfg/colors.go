package chartcfg

import (
	"hash/fnv"

	"tinychart/internal/models"
)

// ColorStrategy computes a line color for a chart from its definition and
// fetched data. Strategies are registered under a name; unknown names fall
// back to the default strategy since styling is not a structural error.
type ColorStrategy func(def models.ChartDefinition, data *models.Dataset) string

// palette used by the sequential and indicator strategies
var palette = []string{
	"#3366cc", // blue
	"#28a745", // green
	"#fd7e14", // orange
	"#6f42c1", // purple
	"#17a2b8", // teal
	"#dc3545", // red
}

const (
	trendUpColor   = "#28a745"
	trendDownColor = "#dc3545"
	trendFlatColor = "#6c757d"
	fallbackColor  = "#adb5bd"
)

// DefaultStrategy is used when a definition names no strategy or an
// unknown one.
const DefaultStrategy = "indicator"

var strategies = map[string]ColorStrategy{
	"indicator":  indicatorColor,
	"sequential": sequentialColor,
	"threshold":  thresholdColor,
}

// ResolveStrategy returns the named strategy, or the default with ok=false
// when the name is unknown.
func ResolveStrategy(name string) (ColorStrategy, bool) {
	if name == "" {
		return strategies[DefaultStrategy], true
	}
	if s, ok := strategies[name]; ok {
		return s, true
	}
	return strategies[DefaultStrategy], false
}

// indicatorColor picks a stable palette color from a hash of the chart id,
// so the same indicator always renders in the same color.
func indicatorColor(def models.ChartDefinition, data *models.Dataset) string {
	h := fnv.New32a()
	h.Write([]byte(def.ID))
	return palette[int(h.Sum32())%len(palette)]
}

// sequentialColor cycles the palette by the length of the series, giving
// adjacent chart sizes distinct colors.
func sequentialColor(def models.ChartDefinition, data *models.Dataset) string {
	if data == nil {
		return palette[0]
	}
	return palette[len(data.Values)%len(palette)]
}

// thresholdColor colors by trend direction: green when the series ends above
// its start, red when below, gray when flat or degraded.
func thresholdColor(def models.ChartDefinition, data *models.Dataset) string {
	if data == nil || len(data.Values) < 2 || data.Fallback {
		return fallbackColor
	}
	first, last := data.Values[0], data.Values[len(data.Values)-1]
	switch {
	case last > first:
		return trendUpColor
	case last < first:
		return trendDownColor
	default:
		return trendFlatColor
	}
}
