// Package legacy discovers pre-existing, unmanaged chart-like elements on
// the hosting surface and migrates them into the instance registry.
package legacy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinychart/internal/logger"
	"tinychart/internal/models"
	"tinychart/internal/surface"
)

const migratedAttr = "data-chart-migrated"

// InstanceManager is the slice of the registry the adapter needs.
type InstanceManager interface {
	CreateInstance(ctx context.Context, def models.ChartDefinition) error
	DestroyInstance(id string)
}

// Options configures an Adapter.
type Options struct {
	SeriesABaseURL string
	Matchers       []Matcher
	Logger         *logger.Logger
}

// migration tracks one legacy element's journey.
type migration struct {
	elementID string
	chartID   string
	migrated  bool
	errors    []string
}

// Adapter migrates legacy elements into managed instances.
type Adapter struct {
	surface  surface.Surface
	manager  InstanceManager
	matchers []Matcher
	opts     Options
	log      *logger.Logger

	mu      sync.Mutex
	records map[string]*migration // keyed by legacy element id
}

// NewAdapter creates an adapter over the given surface and registry.
func NewAdapter(surf surface.Surface, manager InstanceManager, opts Options) *Adapter {
	if opts.Matchers == nil {
		opts.Matchers = DefaultMatchers()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobalLogger().WithComponent("legacy")
	}
	return &Adapter{
		surface:  surf,
		manager:  manager,
		matchers: opts.Matchers,
		opts:     opts,
		log:      opts.Logger,
		records:  make(map[string]*migration),
	}
}

// ScanLegacyElements returns the unmanaged chart-like elements on the
// surface, in surface order. Already-migrated elements are skipped.
func (a *Adapter) ScanLegacyElements() []*surface.Element {
	var found []*surface.Element
	for _, el := range a.surface.Elements() {
		if el.Attr(migratedAttr) == "true" {
			continue
		}
		for _, m := range a.matchers {
			if m.Match(el) {
				found = append(found, el)
				break
			}
		}
	}
	a.log.Infof("legacy scan found %d candidate elements", len(found))
	return found
}

// MigrateAll migrates every discovered legacy element. A failed migration
// leaves the legacy element visible and records the error against it.
func (a *Adapter) MigrateAll(ctx context.Context) MigrationStats {
	elements := a.ScanLegacyElements()

	stats := MigrationStats{Discovered: len(elements)}
	for _, el := range elements {
		if err := a.migrate(ctx, el); err != nil {
			stats.Failed++
			a.log.Warnf("migration of %s failed: %v", el.ID, err)
			continue
		}
		stats.Migrated++
	}
	a.log.Info("legacy migration finished", map[string]interface{}{
		"discovered": stats.Discovered,
		"migrated":   stats.Migrated,
		"failed":     stats.Failed,
	})
	return stats
}

// migrate synthesizes a definition for one element and brings it under
// management.
func (a *Adapter) migrate(ctx context.Context, el *surface.Element) error {
	var def models.ChartDefinition
	matched := false
	for _, m := range a.matchers {
		if m.Match(el) {
			def = m.Extract(el, a.opts)
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("element %s matches no legacy convention", el.ID)
	}

	rec := a.record(el.ID)
	rec.chartID = def.ID

	// The managed instance draws into its own target, not the legacy
	// element
	if a.surface.Lookup(def.RenderTargetID) == nil {
		target, err := a.surface.Create(def.RenderTargetID, "div")
		if err != nil {
			rec.fail(err)
			return err
		}
		target.Width = el.Width
		target.Height = el.Height
	}

	if err := a.manager.CreateInstance(ctx, def); err != nil {
		rec.fail(err)
		return err
	}

	el.SetHidden(true)
	el.SetAttr(migratedAttr, "true")
	rec.migrated = true
	return nil
}

// Rollback destroys the managed instance migrated from the given legacy
// element and restores the element's visibility. Used for validation,
// not normal operation.
func (a *Adapter) Rollback(elementID string) error {
	a.mu.Lock()
	rec, ok := a.records[elementID]
	a.mu.Unlock()
	if !ok || !rec.migrated {
		return fmt.Errorf("element %s was not migrated", elementID)
	}

	a.manager.DestroyInstance(rec.chartID)
	a.surface.Remove(managedTargetID(rec.chartID))

	if el := a.surface.Lookup(elementID); el != nil {
		el.SetHidden(false)
		el.SetAttr(migratedAttr, "")
	}

	a.mu.Lock()
	rec.migrated = false
	a.mu.Unlock()

	a.log.Infof("rolled back migration of %s", elementID)
	return nil
}

// record returns (or creates) the migration record for an element.
func (a *Adapter) record(elementID string) *migration {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[elementID]
	if !ok {
		rec = &migration{elementID: elementID}
		a.records[elementID] = rec
	}
	return rec
}

func (m *migration) fail(err error) {
	m.errors = append(m.errors, fmt.Sprintf("%s: %v", time.Now().UTC().Format(time.RFC3339), err))
}
