package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tinychart/internal/logger"
	"tinychart/internal/models"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.FATAL})
}

// testClock is a settable clock for TTL tests
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(clock *testClock) *Manager {
	return NewManager(Options{
		CacheTimeout:  time.Minute,
		MaxConcurrent: 4,
		FetchTimeout:  5 * time.Second,
		Logger:        quietLogger(),
		Clock:         clock.Now,
	})
}

func TestCacheFreshness(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`[{"date":"2025-01-01","value":1.5},{"date":"2025-01-02","value":2.5}]`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceSeriesA, Endpoint: srv.URL}

	first := m.GetData(context.Background(), spec)
	second := m.GetData(context.Background(), spec)

	if atomic.LoadInt64(&fetches) != 1 {
		t.Errorf("fresh cache hit should not fetch, got %d fetches", fetches)
	}
	if first != second {
		t.Error("fresh cache hit must return the identical dataset object")
	}

	clock.Advance(2 * time.Minute)
	third := m.GetData(context.Background(), spec)

	if atomic.LoadInt64(&fetches) != 2 {
		t.Errorf("expired entry should trigger exactly one refetch, got %d fetches", fetches)
	}
	if third == first {
		t.Error("expired entry must be replaced wholesale, not reused")
	}
}

func TestGetDataBypassCache(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`{"values":[1,2,3]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL}

	m.GetData(context.Background(), spec)
	m.GetData(context.Background(), spec, GetOptions{BypassCache: true})

	if atomic.LoadInt64(&fetches) != 2 {
		t.Errorf("BypassCache must always fetch, got %d fetches", fetches)
	}

	// A zero-value options struct keeps the cache behavior
	m.GetData(context.Background(), spec, GetOptions{})
	if atomic.LoadInt64(&fetches) != 2 {
		t.Errorf("zero-value options must still use the cache, got %d fetches", fetches)
	}
}

func TestFetchFailureYieldsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceSeriesA, Endpoint: srv.URL}

	ds := m.GetData(context.Background(), spec)
	if !ds.Fallback {
		t.Error("failed fetch should return a fallback dataset")
	}
	if len(ds.Values) == 0 {
		t.Error("fallback dataset must carry a non-empty series")
	}
	if m.Stats().Fallbacks != 1 {
		t.Errorf("expected 1 fallback recorded, got %d", m.Stats().Fallbacks)
	}
	if m.Stats().Entries != 0 {
		t.Error("fallback datasets must not be cached")
	}
}

func TestEmptySeriesYieldsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL}

	if ds := m.GetData(context.Background(), spec); !ds.Fallback {
		t.Error("empty series should degrade to fallback")
	}
}

func TestMalformedPayloadYieldsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceSeriesB, Endpoint: srv.URL}

	if ds := m.GetData(context.Background(), spec); !ds.Fallback {
		t.Error("malformed payload should degrade to fallback")
	}
}

func TestInflightDeduplication(t *testing.T) {
	var fetches int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		<-release
		w.Write([]byte(`{"values":[7,8,9]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)
	spec := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL}

	var wg sync.WaitGroup
	results := make([]*models.Dataset, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.GetData(context.Background(), spec)
		}(i)
	}

	// Give the callers time to pile onto the single in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt64(&fetches); got != 1 {
		t.Errorf("concurrent cold-key callers must share one fetch, got %d", got)
	}
	for i := 1; i < 4; i++ {
		if results[i] != results[0] {
			t.Error("all concurrent callers should receive the shared dataset")
		}
	}
}

func TestConcurrencyLimit(t *testing.T) {
	var active, peak int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt64(&active, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		w.Write([]byte(`{"values":[1]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := NewManager(Options{
		CacheTimeout:  time.Minute,
		MaxConcurrent: 2,
		Logger:        quietLogger(),
		Clock:         clock.Now,
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct endpoints so de-dup does not collapse the load
			spec := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL + "/" + string(rune('a'+i))}
			m.GetData(context.Background(), spec)
		}(i)
	}
	wg.Wait()

	if p := atomic.LoadInt64(&peak); p > 2 {
		t.Errorf("concurrency limit exceeded: peak %d in-flight fetches", p)
	}
}

func TestPreloadFetchesDistinctSourcesOnce(t *testing.T) {
	var fetches int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`{"values":[1,2]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	shared := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL + "/shared"}
	other := models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL + "/other"}
	defs := []models.ChartDefinition{
		{ID: "a", DataSource: shared},
		{ID: "b", DataSource: shared},
		{ID: "c", DataSource: shared},
		{ID: "d", DataSource: other},
	}

	m.Preload(context.Background(), defs)

	if got := atomic.LoadInt64(&fetches); got != 2 {
		t.Errorf("preload should fetch each distinct source once, got %d fetches", got)
	}
}

func TestCleanupCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[1]}`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	m.GetData(context.Background(), models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL + "/x"})
	clock.Advance(30 * time.Second)
	m.GetData(context.Background(), models.DataSourceSpec{Kind: models.SourceCustom, Endpoint: srv.URL + "/y"})

	clock.Advance(40 * time.Second) // x is now 70s old, y 40s old; TTL 60s
	if removed := m.CleanupCache(); removed != 1 {
		t.Errorf("expected 1 expired entry removed, got %d", removed)
	}
	if m.Stats().Entries != 1 {
		t.Errorf("expected 1 surviving entry, got %d", m.Stats().Entries)
	}
}

func TestFeedSource(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>events</title>
<item><title>one</title><pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate></item>
<item><title>two</title><pubDate>Mon, 02 Jun 2025 12:00:00 GMT</pubDate></item>
<item><title>three</title><pubDate>Tue, 03 Jun 2025 09:00:00 GMT</pubDate></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rss))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	ds := m.GetData(context.Background(), models.DataSourceSpec{Kind: models.SourceFeed, Endpoint: srv.URL})
	if ds.Fallback {
		t.Fatal("valid feed should not degrade")
	}
	if len(ds.Values) != 2 || ds.Values[0] != 2 || ds.Values[1] != 1 {
		t.Errorf("expected day-bucketed series [2 1], got %v", ds.Values)
	}
}

func TestFeedQuietDaysAreZeroFilled(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>events</title>
<item><title>one</title><pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate></item>
<item><title>two</title><pubDate>Mon, 02 Jun 2025 12:00:00 GMT</pubDate></item>
<item><title>three</title><pubDate>Wed, 04 Jun 2025 09:00:00 GMT</pubDate></item>
</channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rss))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	ds := m.GetData(context.Background(), models.DataSourceSpec{Kind: models.SourceFeed, Endpoint: srv.URL})
	if ds.Fallback {
		t.Fatal("valid feed should not degrade")
	}
	if len(ds.Values) != 3 || ds.Values[0] != 2 || ds.Values[1] != 0 || ds.Values[2] != 1 {
		t.Errorf("expected a zero for the quiet day, [2 0 1], got %v", ds.Values)
	}
}

func TestMalformedFeedFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<<<not a feed`))
	}))
	defer srv.Close()

	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	if ds := m.GetData(context.Background(), models.DataSourceSpec{Kind: models.SourceFeed, Endpoint: srv.URL}); !ds.Fallback {
		t.Error("malformed feed should degrade to fallback")
	}
}

func TestTransforms(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(clock)

	diff := m.applyTransform("diff", []float64{1, 3, 6})
	if len(diff) != 2 || diff[0] != 2 || diff[1] != 3 {
		t.Errorf("diff transform wrong: %v", diff)
	}

	pct := m.applyTransform("pct", []float64{100, 110})
	if len(pct) != 1 || pct[0] != 10 {
		t.Errorf("pct transform wrong: %v", pct)
	}

	raw := m.applyTransform("mystery", []float64{1, 2})
	if len(raw) != 2 {
		t.Errorf("unknown transform should return the raw series: %v", raw)
	}
}
