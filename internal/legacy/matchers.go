package legacy

import (
	"encoding/json"
	"strings"

	"tinychart/internal/models"
	"tinychart/internal/surface"
)

// Matcher recognizes one legacy chart convention. Matchers run in order;
// the first match wins and its extractor synthesizes the definition.
// New conventions are added to the list without touching the scan core.
type Matcher struct {
	Name    string
	Match   func(el *surface.Element) bool
	Extract func(el *surface.Element, opts Options) models.ChartDefinition
}

// DefaultMatchers returns the built-in conventions, most specific first.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{
			Name:    "data-attributes",
			Match:   matchDataAttributes,
			Extract: extractFromDataAttributes,
		},
		{
			Name:    "naming-convention",
			Match:   matchNamingConvention,
			Extract: extractFromNaming,
		},
	}
}

// matchDataAttributes recognizes elements that declare a chart source
// through data attributes.
func matchDataAttributes(el *surface.Element) bool {
	return el.Attr("data-indicator") != "" || el.Attr("data-chart-source") != ""
}

// matchNamingConvention recognizes small canvas/div elements whose id
// follows the legacy "legacy-chart-<indicator>" naming.
func matchNamingConvention(el *surface.Element) bool {
	if el.Tag != "canvas" && el.Tag != "div" {
		return false
	}
	if !strings.HasPrefix(el.ID, "legacy-chart-") {
		return false
	}
	// Legacy tiny charts are small; anything bigger is some other widget
	return el.Width <= 400 && el.Height <= 200
}

// extractFromDataAttributes reads the declared attributes, inferring the
// indicator from the element id when no explicit attribute is present.
func extractFromDataAttributes(el *surface.Element, opts Options) models.ChartDefinition {
	indicator := el.Attr("data-indicator")
	if indicator == "" {
		indicator = inferIndicator(el.ID)
	}

	kind := models.SourceKind(el.Attr("data-source-kind"))
	if !models.KnownKind(kind) {
		kind = models.SourceSeriesA
	}

	endpoint := el.Attr("data-endpoint")
	if endpoint == "" {
		endpoint = opts.SeriesABaseURL + "/" + indicator
	}

	def := models.ChartDefinition{
		ID:             indicator,
		RenderTargetID: managedTargetID(indicator),
		Title:          titleFor(indicator),
		DataSource:     models.DataSourceSpec{Kind: kind, Endpoint: endpoint},
		ColorStrategy:  el.Attr("data-color-strategy"),
	}

	// Inline config rides along as custom options
	if raw := el.Attr("data-config"); raw != "" {
		var cfg map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &cfg); err == nil {
			def.CustomConfig = cfg
		}
	}
	return def
}

// extractFromNaming derives everything from the element id.
func extractFromNaming(el *surface.Element, opts Options) models.ChartDefinition {
	indicator := inferIndicator(el.ID)
	return models.ChartDefinition{
		ID:             indicator,
		RenderTargetID: managedTargetID(indicator),
		Title:          titleFor(indicator),
		DataSource: models.DataSourceSpec{
			Kind:     models.SourceSeriesA,
			Endpoint: opts.SeriesABaseURL + "/" + indicator,
		},
	}
}

// inferIndicator strips known legacy prefixes from an element id.
func inferIndicator(id string) string {
	for _, prefix := range []string{"legacy-chart-", "legacy-", "chart-"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

func titleFor(indicator string) string {
	if indicator == "" {
		return ""
	}
	return strings.ToUpper(indicator[:1]) + indicator[1:]
}

func managedTargetID(indicator string) string {
	return "managed-" + indicator
}
