// Package render contains the rendering backends chart instances draw
// through. A backend accepts a declarative render configuration and a
// render target and returns a handle whose Destroy releases the visual.
package render

import (
	"sync"

	"github.com/google/uuid"

	"tinychart/internal/chartcfg"
	"tinychart/internal/surface"
)

// Handle is a live rendered chart. Destroy is idempotent.
type Handle interface {
	ID() string
	Destroy()
}

// Renderer turns a render configuration into a visual on a target element.
type Renderer interface {
	Render(target *surface.Element, cfg chartcfg.RenderConfig) (Handle, error)
}

// handle is the concrete Handle shared by the backends. Destroy may be
// called from the registry and a scheduled retry at the same time, so the
// release is guarded.
type handle struct {
	id string

	mu       sync.Mutex
	target   *surface.Element
	released bool
}

func newHandle(target *surface.Element) *handle {
	return &handle{
		id:     uuid.NewString(),
		target: target,
	}
}

func (h *handle) ID() string {
	return h.id
}

func (h *handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if h.target != nil {
		h.target.Clear()
	}
}

// uuidSuffix returns a short unique fragment for element ids.
func uuidSuffix() string {
	return uuid.NewString()[:8]
}
