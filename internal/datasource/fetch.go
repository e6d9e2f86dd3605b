package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tinychart/internal/models"
	"tinychart/internal/recovery"
)

// seriesAPoint is the response shape of the primary indicator API:
// a JSON array of dated observations.
type seriesAPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// seriesBResponse is the response shape of the aggregate API:
// observations nested under a metadata envelope.
type seriesBResponse struct {
	Series struct {
		Name string `json:"name"`
	} `json:"series"`
	Observations []struct {
		Value float64 `json:"value"`
	} `json:"observations"`
}

// customResponse is the generic shape expected from custom endpoints.
type customResponse struct {
	Values []float64 `json:"values"`
}

// fetch dispatches on the source kind. The kind set is closed: anything
// outside it is a structural error, not a fetch failure.
func (m *Manager) fetch(ctx context.Context, spec models.DataSourceSpec) ([]float64, error) {
	switch spec.Kind {
	case models.SourceSeriesA:
		return m.fetchSeriesA(ctx, spec.Endpoint)
	case models.SourceSeriesB:
		return m.fetchSeriesB(ctx, spec.Endpoint)
	case models.SourceCustom:
		return m.fetchCustom(ctx, spec.Endpoint)
	case models.SourceFeed:
		return m.fetchFeed(ctx, spec.Endpoint)
	default:
		return nil, recovery.NewError(recovery.KindInvalidDefinition, "",
			fmt.Errorf("unknown data source kind %q", spec.Kind))
	}
}

// fetchSeriesA fetches a dated-observation array
func (m *Manager) fetchSeriesA(ctx context.Context, url string) ([]float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch series: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("series API returned status %d", resp.StatusCode())
	}

	var points []seriesAPoint
	if err := json.Unmarshal(resp.Body(), &points); err != nil {
		return nil, fmt.Errorf("failed to parse series response: %w", err)
	}

	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	return values, nil
}

// fetchSeriesB fetches an enveloped observation list
func (m *Manager) fetchSeriesB(ctx context.Context, url string) ([]float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch aggregate series: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("aggregate API returned status %d", resp.StatusCode())
	}

	var data seriesBResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to parse aggregate response: %w", err)
	}

	values := make([]float64, 0, len(data.Observations))
	for _, obs := range data.Observations {
		values = append(values, obs.Value)
	}
	return values, nil
}

// fetchCustom fetches the generic {values:[...]} shape
func (m *Manager) fetchCustom(ctx context.Context, url string) ([]float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom source: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("custom source returned status %d", resp.StatusCode())
	}

	var data customResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("failed to parse custom response: %w", err)
	}
	return data.Values, nil
}

// fetchFeed fetches an RSS/Atom feed and derives a numeric series from it:
// published items bucketed per day over the feed's window, oldest first.
func (m *Manager) fetchFeed(ctx context.Context, url string) ([]float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		Get(url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	feed, err := m.feedParser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	counts := make(map[string]int)
	for _, item := range feed.Items {
		if item.PublishedParsed == nil {
			continue
		}
		day := item.PublishedParsed.UTC().Format("2006-01-02")
		counts[day]++
	}
	if len(counts) == 0 {
		return nil, nil
	}

	days := make([]string, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Strings(days)

	// Bucket over the full published range so quiet days appear as zeros
	// instead of being skipped
	first, err := time.Parse("2006-01-02", days[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed day %q: %w", days[0], err)
	}
	last, err := time.Parse("2006-01-02", days[len(days)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed day %q: %w", days[len(days)-1], err)
	}

	var values []float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		values = append(values, float64(counts[d.Format("2006-01-02")]))
	}
	return values, nil
}

// applyTransform applies the spec's named post-fetch transform. Unknown
// names are ignored with a warning since a transform is styling-adjacent,
// not structural.
func (m *Manager) applyTransform(name string, values []float64) []float64 {
	switch name {
	case "", "none":
		return values
	case "diff":
		if len(values) < 2 {
			return values
		}
		out := make([]float64, len(values)-1)
		for i := 1; i < len(values); i++ {
			out[i-1] = values[i] - values[i-1]
		}
		return out
	case "pct":
		if len(values) < 2 {
			return values
		}
		out := make([]float64, 0, len(values)-1)
		for i := 1; i < len(values); i++ {
			prev := values[i-1]
			if prev == 0 {
				out = append(out, 0)
				continue
			}
			out = append(out, (values[i]-prev)/prev*100)
		}
		return out
	default:
		m.log.Warnf("unknown transform %q, returning raw series", name)
		return values
	}
}
