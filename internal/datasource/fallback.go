package datasource

import (
	"time"

	"tinychart/internal/models"
)

// Deterministic fallback series per source kind. Fetch and format failures
// are absorbed into one of these so downstream rendering proceeds in a
// visibly-degraded state instead of crashing the surface.
var fallbackSeries = map[models.SourceKind][]float64{
	models.SourceSeriesA: {50, 52, 51, 53, 52, 54, 53},
	models.SourceSeriesB: {100, 98, 101, 99, 102, 100, 103},
	models.SourceCustom:  {1, 1, 1, 1, 1},
	models.SourceFeed:    {0, 0, 0, 0, 0, 0, 0},
}

// fallbackDataset builds the degraded dataset for a spec.
func fallbackDataset(spec models.DataSourceSpec, now time.Time) *models.Dataset {
	series := fallbackSeries[spec.Kind]
	values := make([]float64, len(series))
	copy(values, series)

	return &models.Dataset{
		Key:       spec.CacheKey(),
		Values:    values,
		Source:    spec.Kind,
		FetchedAt: now,
		Fallback:  true,
	}
}
