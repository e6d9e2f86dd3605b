package render

import (
	"fmt"
	"html"
	"strings"

	"tinychart/internal/surface"
)

// RenderErrorPlaceholder replaces a target's content with a visually
// distinct, non-interactive error marker. Used when a chart cannot be
// created after exhausting retries or while its circuit is open.
func RenderErrorPlaceholder(target *surface.Element, message string) {
	if target == nil {
		return
	}
	target.SetContent(fmt.Sprintf(
		`<div class="chart-error" style="opacity:0.5;pointer-events:none;" data-chart-error="true">&#9888; %s</div>`,
		html.EscapeString(message),
	))
	target.SetHidden(false)
}

// IsErrorPlaceholder reports whether a target currently shows the error
// placeholder.
func IsErrorPlaceholder(target *surface.Element) bool {
	if target == nil {
		return false
	}
	return strings.Contains(target.Content(), `data-chart-error="true"`)
}
