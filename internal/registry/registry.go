// Package registry owns the authoritative map of active chart instances
// and orchestrates create/update/destroy against the data, config, render,
// and recovery layers.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinychart/internal/chartcfg"
	"tinychart/internal/datasource"
	"tinychart/internal/logger"
	"tinychart/internal/models"
	"tinychart/internal/recovery"
	"tinychart/internal/render"
	"tinychart/internal/surface"
)

// InstanceRecord is one live chart instance.
type InstanceRecord struct {
	Definition models.ChartDefinition
	Handle     render.Handle
	LastUpdate time.Time
	IsFallback bool
}

// Registry manages chart instances. At most one record exists per chart id
// at any time.
type Registry struct {
	surface  surface.Surface
	data     *datasource.Manager
	renderer render.Renderer
	recovery *recovery.Handler
	log      *logger.Logger
	now      func() time.Time

	mu        sync.RWMutex
	instances map[string]*InstanceRecord
	creating  map[string]*sync.Mutex
}

// Options configures a Registry.
type Options struct {
	Surface  surface.Surface
	Data     *datasource.Manager
	Renderer render.Renderer
	Recovery *recovery.Handler
	Logger   *logger.Logger
	Clock    func() time.Time
}

// New creates a Registry with explicit collaborators.
func New(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobalLogger().WithComponent("registry")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		surface:   opts.Surface,
		data:      opts.Data,
		renderer:  opts.Renderer,
		recovery:  opts.Recovery,
		log:       opts.Logger,
		now:       opts.Clock,
		instances: make(map[string]*InstanceRecord),
		creating:  make(map[string]*sync.Mutex),
	}
}

// createLock returns the per-id creation lock, allocating it on first use.
func (r *Registry) createLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.creating[id]
	if !ok {
		l = &sync.Mutex{}
		r.creating[id] = l
	}
	return l
}

// CreateInstance creates (or recreates) the chart described by def.
// A first failure is routed through the recovery handler with a retry
// closure; failures of the scheduled retries themselves are reported by
// the handler's retry loop, so each real failure is counted exactly once.
// The returned error reports the immediate attempt's outcome.
func (r *Registry) CreateInstance(ctx context.Context, def models.ChartDefinition) error {
	return r.create(ctx, def, true)
}

// create runs one creation attempt. report controls whether a failure is
// handed to the recovery handler: true for caller-initiated creates, false
// for the retry closure, whose failures the handler re-reports itself.
func (r *Registry) create(ctx context.Context, def models.ChartDefinition, report bool) error {
	def = def.Clone()

	if err := def.Validate(); err != nil {
		wrapped := recovery.NewError(recovery.KindInvalidDefinition, def.ID, err)
		if report {
			r.recovery.HandleError(def.ID, wrapped, nil, nil)
		}
		return wrapped
	}

	// Creations for one id run strictly one at a time: a scheduled retry
	// can overlap the refresh tick re-running the same definition. The
	// failure is routed outside the lock so a synchronous scheduler's
	// retry can re-enter.
	lock := r.createLock(def.ID)
	lock.Lock()
	err := r.createLocked(ctx, def)
	lock.Unlock()

	if err != nil && report {
		r.routeFailure(def, err)
	}
	return err
}

func (r *Registry) createLocked(ctx context.Context, def models.ChartDefinition) error {
	target := r.surface.Lookup(def.RenderTargetID)

	// An open circuit suppresses the whole creation path, including the
	// data fetch.
	if r.recovery.BreakerActive(def.ID) {
		r.log.Warnf("circuit open for %s, rendering placeholder without attempt", def.ID)
		render.RenderErrorPlaceholder(target, fmt.Sprintf("chart %s temporarily disabled", def.ID))
		return nil
	}

	if target == nil {
		return recovery.NewError(recovery.KindTargetMissing, def.ID,
			fmt.Errorf("render target %q not found", def.RenderTargetID))
	}

	// Replace any prior instance for the same id before rendering anew
	r.DestroyInstance(def.ID)

	dataset := r.data.GetData(ctx, def.DataSource)

	cfg, knownStrategy, err := chartcfg.BuildWithStrategy(def, dataset)
	if err != nil {
		return recovery.NewError(recovery.KindRenderCreation, def.ID, err)
	}
	if !knownStrategy {
		r.log.Warnf("unknown color strategy %q for %s, using default", def.ColorStrategy, def.ID)
	}

	handle, err := r.renderer.Render(target, cfg)
	if err != nil {
		return recovery.NewError(recovery.KindRenderCreation, def.ID, err)
	}

	record := &InstanceRecord{
		Definition: def,
		Handle:     handle,
		LastUpdate: r.now(),
		IsFallback: dataset.Fallback,
	}

	r.mu.Lock()
	r.instances[def.ID] = record
	r.mu.Unlock()

	r.recovery.ClearRetries(def.ID)
	r.log.Debug("instance created", map[string]interface{}{
		"chartId":  def.ID,
		"fallback": dataset.Fallback,
	})
	return nil
}

// routeFailure hands a creation failure to the recovery handler with the
// closures it needs to retry the creation or place the error placeholder.
// The retry closure does not report its own failure; the handler observes
// the returned error and drives the next step of the loop.
func (r *Registry) routeFailure(def models.ChartDefinition, err error) {
	retry := func() error {
		return r.create(context.Background(), def, false)
	}
	placeholder := func() {
		target := r.surface.Lookup(def.RenderTargetID)
		render.RenderErrorPlaceholder(target, fmt.Sprintf("chart %s unavailable", def.ID))
	}
	r.recovery.HandleError(def.ID, err, retry, placeholder)
}

// DestroyInstance tears down the instance for id. Destroying an absent or
// already-destroyed id is a no-op.
func (r *Registry) DestroyInstance(id string) {
	r.mu.Lock()
	record, ok := r.instances[id]
	if ok {
		delete(r.instances, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if record.Handle != nil {
		record.Handle.Destroy()
	}
	r.log.Debugf("instance %s destroyed", id)
}

// UpdateInstances recreates the instances for the given ids from their
// stored definitions. Full recreation, not in-place mutation.
func (r *Registry) UpdateInstances(ctx context.Context, ids []string) {
	for _, id := range ids {
		r.mu.RLock()
		record, ok := r.instances[id]
		r.mu.RUnlock()
		if !ok {
			r.log.Warnf("update requested for unknown instance %s", id)
			continue
		}
		if err := r.CreateInstance(ctx, record.Definition); err != nil {
			r.log.Warnf("update of %s failed: %v", id, err)
		}
	}
}

// UpdateAll recreates every active instance, used by the refresh tick.
func (r *Registry) UpdateAll(ctx context.Context) {
	r.UpdateInstances(ctx, r.ActiveIDs())
}

// DestroyAll tears down every active instance.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	records := make([]*InstanceRecord, 0, len(r.instances))
	for _, rec := range r.instances {
		records = append(records, rec)
	}
	r.instances = make(map[string]*InstanceRecord)
	r.mu.Unlock()

	for _, rec := range records {
		if rec.Handle != nil {
			rec.Handle.Destroy()
		}
	}
	r.log.Infof("destroyed %d instances", len(records))
}

// Get returns the record for id, or nil when absent.
func (r *Registry) Get(id string) *InstanceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[id]
}

// ActiveIDs returns the ids of all live instances.
func (r *Registry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	return ids
}

// Definitions returns the stored definitions of all live instances.
func (r *Registry) Definitions() []models.ChartDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]models.ChartDefinition, 0, len(r.instances))
	for _, rec := range r.instances {
		defs = append(defs, rec.Definition)
	}
	return defs
}
