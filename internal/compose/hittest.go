package compose

import (
	"image"
	"sync"
)

// HitTest returns the first index in geometry order whose control
// rectangle contains pt. Clicks inside a tile but outside its control
// are not a hit.
func HitTest(geoms []Geometry, pt image.Point) (int, bool) {
	for _, g := range geoms {
		if g.Present && g.HasControl && pt.In(g.Control) {
			return g.Index, true
		}
	}
	return 0, false
}

// Dispatcher maps canvas clicks against the most recently rendered
// geometry. A click racing a layout recompute may dispatch against the
// previous cycle's geometry; with per-cycle layouts this window is one
// frame and is tolerated.
type Dispatcher struct {
	mu     sync.Mutex
	geoms  []Geometry
	toggle func(index int)
}

// NewDispatcher creates a dispatcher that invokes toggle with the hit
// stream index.
func NewDispatcher(toggle func(index int)) *Dispatcher {
	return &Dispatcher{toggle: toggle}
}

// Update replaces the geometry after a render cycle.
func (d *Dispatcher) Update(geoms []Geometry) {
	d.mu.Lock()
	d.geoms = geoms
	d.mu.Unlock()
}

// Click resolves pt against the current geometry, firing the toggle on a
// hit. Reports whether anything was hit.
func (d *Dispatcher) Click(pt image.Point) bool {
	d.mu.Lock()
	geoms := d.geoms
	d.mu.Unlock()

	idx, ok := HitTest(geoms, pt)
	if !ok {
		return false
	}
	d.toggle(idx)
	return true
}
