package instrument

import (
	"sort"
	"sync"
	"time"

	"github.com/agenttrace/instrument/internal/domain"
)

// Marker records that a unit is instrumented and what it was before.
type Marker struct {
	Unit        domain.Unit
	Class       *Class
	Original    *Method
	Wrapper     *Method
	InstalledAt time.Time

	// owner delivers the records of Wrapper
	owner *Instrumenter
}

// active reports whether the marker's wrapper is still installed on its class
func (m *Marker) active() bool {
	if m.Class == nil {
		return false
	}
	current, ok := m.Class.Method(m.Unit.Method)
	return ok && current == m.Wrapper
}

// Registry indexes markers by unit and remembers which units are generic
// adapter methods whose calls must be resolved against the adapter's
// wrapped callable. A unit belongs to one Class at a time; installing a
// same-named Class while the first is instrumented fails.
type Registry struct {
	mu      sync.RWMutex
	markers map[domain.Unit]*Marker
	generic map[domain.Unit]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		markers: make(map[domain.Unit]*Marker),
		generic: make(map[domain.Unit]struct{}),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when Options.Registry is nil.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup returns the marker for unit
func (r *Registry) Lookup(unit domain.Unit) (*Marker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markers[unit]
	return m, ok
}

// IsInstrumented reports whether unit has a marker
func (r *Registry) IsInstrumented(unit domain.Unit) bool {
	_, ok := r.Lookup(unit)
	return ok
}

// MarkGeneric flags unit as a generic adapter method
func (r *Registry) MarkGeneric(unit domain.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generic[unit] = struct{}{}
}

// IsGeneric implements signature.GenericLookup
func (r *Registry) IsGeneric(unit domain.Unit) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.generic[unit]
	return ok
}

// Units returns the instrumented units in order
func (r *Registry) Units() []domain.Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	units := make([]domain.Unit, 0, len(r.markers))
	for u := range r.markers {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].String() < units[j].String()
	})
	return units
}

// Markers returns the markers in unit order
func (r *Registry) Markers() []*Marker {
	units := r.Units()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Marker, 0, len(units))
	for _, u := range units {
		if m, ok := r.markers[u]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) put(m *Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[m.Unit] = m
}

func (r *Registry) remove(unit domain.Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.markers, unit)
}
