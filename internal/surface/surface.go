// Package surface models the hosting surface chart instances render into.
// The core never touches a real page directly; it talks to a Surface, and
// the host supplies the implementation. Document is the in-memory
// implementation used by the orchestrator and the tests.
package surface

import (
	"fmt"
	"sync"
)

// Element is one render target (or legacy chart-like node) on the surface.
// Identity and geometry are fixed at creation. Content, visibility, and
// attributes are written concurrently (renderers, scheduled retries, the
// refresh tick) and are guarded by the element's own lock.
type Element struct {
	ID     string
	Tag    string
	Width  int
	Height int

	mu      sync.Mutex
	attrs   map[string]string
	hidden  bool
	content string
}

// Attr returns the named attribute, or "" when absent.
func (e *Element) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

// SetAttr sets the named attribute.
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
}

// Hidden reports whether the element is hidden.
func (e *Element) Hidden() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hidden
}

// SetHidden sets the element's visibility.
func (e *Element) SetHidden(hidden bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hidden = hidden
}

// Content returns the element's drawn content.
func (e *Element) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// SetContent replaces the element's drawn content.
func (e *Element) SetContent(content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = content
}

// Clear wipes the element's drawn content.
func (e *Element) Clear() {
	e.SetContent("")
}

// Surface is the host-supplied capability for locating and managing
// render targets.
type Surface interface {
	// Lookup returns the element with the given id, or nil when absent.
	Lookup(id string) *Element

	// Elements returns all elements on the surface.
	Elements() []*Element

	// Create adds a new element and returns it. Creating an id that
	// already exists is an error.
	Create(id, tag string) (*Element, error)

	// Remove deletes the element with the given id. Removing an absent
	// id is a no-op.
	Remove(id string)
}

// Document is an in-memory Surface implementation.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	order    []string
}

// NewDocument creates an empty in-memory surface.
func NewDocument() *Document {
	return &Document{
		elements: make(map[string]*Element),
	}
}

// Lookup returns the element with the given id, or nil when absent.
func (d *Document) Lookup(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elements[id]
}

// Elements returns all elements in insertion order.
func (d *Document) Elements() []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		if el, ok := d.elements[id]; ok {
			out = append(out, el)
		}
	}
	return out
}

// Create adds a new element to the document.
func (d *Document) Create(id, tag string) (*Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.elements[id]; exists {
		return nil, fmt.Errorf("element %q already exists", id)
	}

	el := &Element{ID: id, Tag: tag}
	d.elements[id] = el
	d.order = append(d.order, id)
	return el, nil
}

// Remove deletes the element with the given id.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.elements[id]; !ok {
		return
	}
	delete(d.elements, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// RenderHTML assembles the visible elements into a single HTML fragment,
// used for snapshot publishing. Elements are emitted in insertion order.
func (d *Document) RenderHTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out string
	for _, id := range d.order {
		el, ok := d.elements[id]
		if !ok || el.Hidden() {
			continue
		}
		out += el.Content()
	}
	return out
}
