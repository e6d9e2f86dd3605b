// Package orchestrator wires the subsystems together and drives the
// periodic refresh and maintenance cycles.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tinychart/internal/config"
	"tinychart/internal/datasource"
	"tinychart/internal/legacy"
	"tinychart/internal/logger"
	"tinychart/internal/models"
	"tinychart/internal/queue"
	"tinychart/internal/recovery"
	"tinychart/internal/registry"
	"tinychart/internal/render"
	"tinychart/internal/storage"
	"tinychart/internal/surface"
)

// Deps are optional overrides for the orchestrator's collaborators.
// Zero fields are built from the configuration.
type Deps struct {
	Surface  surface.Surface
	Renderer render.Renderer
	Store    storage.SnapshotStore
	Logger   *logger.Logger
}

// Orchestrator owns the full chart lifecycle: initialization, periodic
// refresh, maintenance, and snapshot publishing.
type Orchestrator struct {
	cfg      *config.Config
	surface  surface.Surface
	data     *datasource.Manager
	recovery *recovery.Handler
	registry *registry.Registry
	queue    *queue.Queue
	legacy   *legacy.Adapter
	store    storage.SnapshotStore
	log      *logger.Logger

	mu        sync.Mutex
	started   bool
	startedAt time.Time
	stop      chan struct{}
	done      sync.WaitGroup
}

// New builds an orchestrator from configuration, using deps where provided.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Orchestrator, error) {
	log := deps.Logger
	if log == nil {
		log = logger.GetGlobalLogger().WithComponent("orchestrator")
	}

	surf := deps.Surface
	if surf == nil {
		surf = surface.NewDocument()
	}

	renderer := deps.Renderer
	if renderer == nil {
		renderer = render.NewEChartsRenderer()
	}

	store := deps.Store
	if store == nil {
		var err error
		store, err = storage.NewSnapshotStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
		}
	}

	data := datasource.NewManager(datasource.Options{
		CacheTimeout:  cfg.CacheTimeout,
		MaxConcurrent: cfg.MaxConcurrentRequests,
		FetchTimeout:  cfg.FetchTimeout,
	})

	rec := recovery.NewHandler(recovery.Options{
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay,
		BreakerCooldown: cfg.BreakerCooldown,
		MaxLogSize:      cfg.MaxLogSize,
	})

	reg := registry.New(registry.Options{
		Surface:  surf,
		Data:     data,
		Renderer: renderer,
		Recovery: rec,
	})

	o := &Orchestrator{
		cfg:      cfg,
		surface:  surf,
		data:     data,
		recovery: rec,
		registry: reg,
		queue:    queue.New(cfg.BatchSize, cfg.BatchDelay, nil),
		store:    store,
		log:      log,
		stop:     make(chan struct{}),
	}
	o.legacy = legacy.NewAdapter(surf, reg, legacy.Options{
		SeriesABaseURL: cfg.SeriesABaseURL,
	})
	return o, nil
}

// Registry exposes the instance registry.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Legacy exposes the legacy migration adapter.
func (o *Orchestrator) Legacy() *legacy.Adapter { return o.legacy }

// Queue exposes the render queue.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Initialize preloads data for the given definitions and creates their
// instances through the batched render queue.
func (o *Orchestrator) Initialize(ctx context.Context, defs []models.ChartDefinition) queue.Result {
	o.log.Info("initializing chart instances", map[string]interface{}{
		"definitions": len(defs),
		"data":        o.data.String(),
	})

	o.data.Preload(ctx, defs)
	result := o.queue.ProcessBatches(ctx, defs, o.registry.CreateInstance)

	o.log.Info("initialization complete", map[string]interface{}{
		"processed": result.Processed,
		"failed":    result.Failed,
	})
	return result
}

// Start launches the periodic refresh and maintenance loops. It returns
// immediately; the loops run until Shutdown.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.startedAt = time.Now()
	o.mu.Unlock()

	o.done.Add(2)
	go o.refreshLoop(ctx)
	go o.maintenanceLoop()

	o.log.Info("orchestrator started", map[string]interface{}{
		"refreshInterval":     o.cfg.RefreshInterval.String(),
		"maintenanceInterval": o.cfg.MaintenanceInterval.String(),
	})
}

func (o *Orchestrator) refreshLoop(ctx context.Context) {
	defer o.done.Done()

	ticker := time.NewTicker(o.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.RefreshAll(ctx)
		case <-o.stop:
			return
		}
	}
}

func (o *Orchestrator) maintenanceLoop() {
	defer o.done.Done()

	ticker := time.NewTicker(o.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.RunMaintenance()
		case <-o.stop:
			return
		}
	}
}

// RefreshAll recreates every instance from its stored definition and
// publishes a fresh snapshot.
func (o *Orchestrator) RefreshAll(ctx context.Context) {
	o.log.Debug("refreshing all instances")
	o.registry.UpdateAll(ctx)

	if err := o.PublishSnapshot(ctx); err != nil {
		o.log.Warnf("snapshot publish failed: %v", err)
	}
}

// RunMaintenance evicts stale cache entries and expired circuit breakers.
func (o *Orchestrator) RunMaintenance() {
	evicted := o.data.CleanupCache()
	purged := o.recovery.PurgeExpiredBreakers()
	o.log.Info("maintenance cycle complete", map[string]interface{}{
		"cacheEvicted":   evicted,
		"breakersPurged": purged,
	})
}

// PublishSnapshot renders the surface to HTML and stores it alongside a
// statistics sidecar.
func (o *Orchestrator) PublishSnapshot(ctx context.Context) error {
	doc, ok := o.surface.(*surface.Document)
	if !ok {
		// Host-supplied surfaces render themselves
		return nil
	}

	now := time.Now().UTC()
	html := "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>TinyChart Dashboard</title></head><body>\n" +
		doc.RenderHTML() + "\n</body></html>"

	if err := o.store.StoreFile(ctx, []byte(html), "index.html", now); err != nil {
		return err
	}

	stats, err := json.MarshalIndent(o.Statistics(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	if err := o.store.StoreFile(ctx, stats, "stats.json", now); err != nil {
		return err
	}

	o.log.Debugf("snapshot published at %s", now.Format(time.RFC3339))
	return nil
}

// Statistics aggregates per-subsystem statistics for observability.
type Statistics struct {
	Instances registry.Statistics      `json:"instances"`
	Data      datasource.Statistics    `json:"data"`
	Errors    recovery.ErrorStatistics `json:"errors"`
	Queue     queue.Status             `json:"queue"`
	Uptime    string                   `json:"uptime,omitempty"`
}

// Statistics returns a point-in-time aggregate across all subsystems.
func (o *Orchestrator) Statistics() Statistics {
	stats := Statistics{
		Instances: o.registry.GetStatistics(),
		Data:      o.data.Stats(),
		Errors:    o.recovery.GetErrorStatistics(),
		Queue:     o.queue.GetStatus(),
	}

	o.mu.Lock()
	if o.started {
		stats.Uptime = time.Since(o.startedAt).Round(time.Second).String()
	}
	o.mu.Unlock()
	return stats
}

// Healthy reports whether the orchestrator can serve traffic.
func (o *Orchestrator) Healthy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}

// Shutdown stops the periodic loops, drains the queue, and tears down
// every instance.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = false
	close(o.stop)
	o.mu.Unlock()

	o.queue.Stop()
	o.done.Wait()

	o.registry.DestroyAll()

	if err := o.store.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot store: %w", err)
	}

	o.log.Info("orchestrator stopped")
	return nil
}
