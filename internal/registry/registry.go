package registry

import (
	"log/slog"
	"sort"
)

// Module is the interface that all capability modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered capability handlers and stoppers for a
// single application instance.
type Registry struct {
	CapabilityRegistry map[string]*RegisteredCapability
	StopperRegistry    map[string]func()
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		CapabilityRegistry: make(map[string]*RegisteredCapability),
		StopperRegistry:    make(map[string]func()),
	}
}

// Capability returns the handler registered for an inbound event.
func (r *Registry) Capability(event string) (*RegisteredCapability, bool) {
	c, ok := r.CapabilityRegistry[event]
	return c, ok
}

// Events returns the registered request events in sorted order.
func (r *Registry) Events() []string {
	out := make([]string, 0, len(r.CapabilityRegistry))
	for ev := range r.CapabilityRegistry {
		out = append(out, ev)
	}
	sort.Strings(out)
	return out
}

// StopAll invokes every registered stopper.
func (r *Registry) StopAll() {
	names := make([]string, 0, len(r.StopperRegistry))
	for name := range r.StopperRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		slog.Debug("Stopping capability.", "name", name)
		r.StopperRegistry[name]()
	}
}
