// Package datasource fetches, caches, and concurrency-limits time-series
// retrieval for the chart pipeline. Failures never propagate to callers as
// errors; they are absorbed into deterministic fallback datasets, and it is
// the caller's job to route the degradation through recovery if it wants
// retry semantics.
package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"tinychart/internal/logger"
	"tinychart/internal/models"
)

// Options configures a Manager.
type Options struct {
	CacheTimeout  time.Duration
	MaxConcurrent int
	FetchTimeout  time.Duration
	Logger        *logger.Logger
	Clock         func() time.Time
}

// GetOptions tune a single GetData call. The zero value keeps the default
// behavior (cache allowed).
type GetOptions struct {
	// BypassCache forces a fetch even when a fresh dataset is cached.
	BypassCache bool
}

// inflight tracks one in-progress fetch so concurrent callers of the same
// cold key share a single network call.
type inflight struct {
	done chan struct{}
	ds   *models.Dataset
}

// Manager is the data layer for all chart instances.
type Manager struct {
	client       *resty.Client
	feedParser   *gofeed.Parser
	cacheTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger

	slots chan struct{}

	mu        sync.Mutex
	cache     map[string]*models.Dataset
	pending   map[string]*inflight
	hits      int64
	misses    int64
	fallbacks int64
}

// NewManager creates a data manager. Zero option fields get defaults:
// 5m cache TTL, 8 concurrent fetches, 30s fetch timeout.
func NewManager(opts Options) *Manager {
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = 5 * time.Minute
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobalLogger().WithComponent("datasource")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	client := resty.New()
	client.SetTimeout(opts.FetchTimeout)

	return &Manager{
		client:       client,
		feedParser:   gofeed.NewParser(),
		cacheTimeout: opts.CacheTimeout,
		now:          opts.Clock,
		log:          opts.Logger,
		slots:        make(chan struct{}, opts.MaxConcurrent),
		cache:        make(map[string]*models.Dataset),
		pending:      make(map[string]*inflight),
	}
}

// GetData returns the dataset for a spec: from cache when fresh, otherwise
// fetched under the concurrency limit. It never returns an error for fetch
// or format failures; those yield a fallback dataset with Fallback set.
func (m *Manager) GetData(ctx context.Context, spec models.DataSourceSpec, opts ...GetOptions) *models.Dataset {
	useCache := true
	if len(opts) > 0 && opts[0].BypassCache {
		useCache = false
	}
	key := spec.CacheKey()

	m.mu.Lock()
	if useCache {
		if ds, ok := m.cache[key]; ok && ds.Age(m.now()) < m.cacheTimeout {
			m.hits++
			m.mu.Unlock()
			return ds
		}
	}
	// Share one fetch between concurrent callers of the same cold key
	if call, ok := m.pending[key]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.ds
		case <-ctx.Done():
			return fallbackDataset(spec, m.now())
		}
	}
	call := &inflight{done: make(chan struct{})}
	m.pending[key] = call
	m.misses++
	m.mu.Unlock()

	ds := m.fetchAndStore(ctx, spec)

	m.mu.Lock()
	call.ds = ds
	delete(m.pending, key)
	m.mu.Unlock()
	close(call.done)

	return ds
}

// fetchAndStore acquires a limiter slot, fetches, and caches the result.
// Any failure degrades to the per-kind fallback series.
func (m *Manager) fetchAndStore(ctx context.Context, spec models.DataSourceSpec) *models.Dataset {
	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		m.log.Warnf("fetch of %s canceled while queued: %v", spec.CacheKey(), ctx.Err())
		return m.degrade(spec)
	}
	defer func() { <-m.slots }()

	values, err := m.fetch(ctx, spec)
	if err != nil {
		m.log.Warn("fetch failed, using fallback series", map[string]interface{}{
			"key":   spec.CacheKey(),
			"error": err.Error(),
		})
		return m.degrade(spec)
	}
	if len(values) == 0 {
		m.log.Warnf("source %s returned an empty series, using fallback", spec.CacheKey())
		return m.degrade(spec)
	}

	values = m.applyTransform(spec.Transform, values)

	ds := &models.Dataset{
		Key:       spec.CacheKey(),
		Values:    values,
		Source:    spec.Kind,
		FetchedAt: m.now(),
	}

	m.mu.Lock()
	m.cache[ds.Key] = ds
	m.mu.Unlock()

	return ds
}

// degrade counts and builds a fallback dataset. Fallbacks are not cached,
// so the next call gets a fresh chance at the real source.
func (m *Manager) degrade(spec models.DataSourceSpec) *models.Dataset {
	m.mu.Lock()
	m.fallbacks++
	m.mu.Unlock()
	return fallbackDataset(spec, m.now())
}

// Preload fetches each distinct data source referenced by a batch of
// definitions exactly once, so charts sharing a source do not trigger
// redundant network calls when the batch is processed.
func (m *Manager) Preload(ctx context.Context, defs []models.ChartDefinition) {
	distinct := make(map[string]models.DataSourceSpec)
	for _, def := range defs {
		distinct[def.DataSource.CacheKey()] = def.DataSource
	}

	m.log.Infof("preloading %d distinct data sources for %d definitions", len(distinct), len(defs))

	var wg sync.WaitGroup
	for _, spec := range distinct {
		wg.Add(1)
		go func(s models.DataSourceSpec) {
			defer wg.Done()
			m.GetData(ctx, s)
		}(spec)
	}
	wg.Wait()
}

// CleanupCache removes entries older than the cache timeout and returns
// the number removed. Called by the maintenance tick, not on reads.
func (m *Manager) CleanupCache() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, ds := range m.cache {
		if ds.Age(now) >= m.cacheTimeout {
			delete(m.cache, key)
			removed++
		}
	}
	if removed > 0 {
		m.log.Infof("cache cleanup removed %d expired entries", removed)
	}
	return removed
}

// Statistics reports cache behavior for health endpoints.
type Statistics struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Fallbacks int64 `json:"fallbacks"`
}

// Stats returns current cache statistics.
func (m *Manager) Stats() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Statistics{
		Entries:   len(m.cache),
		Hits:      m.hits,
		Misses:    m.misses,
		Fallbacks: m.fallbacks,
	}
}

// String describes the manager configuration, used in startup logs.
func (m *Manager) String() string {
	return fmt.Sprintf("datasource.Manager{ttl=%v, slots=%d}", m.cacheTimeout, cap(m.slots))
}
