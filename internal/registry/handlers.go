package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Request is a decoded capability request correlated by an engine-issued id.
type Request interface {
	ID() string
}

// RegisteredCapability holds the compiled Go parts of one capability.
type RegisteredCapability struct {
	// ResultEvent is the outbound event carrying the result.
	ResultEvent string
	// Timeout bounds how long the engine is kept waiting for a result.
	Timeout time.Duration
	// NewRequest returns a pointer to decode the inbound payload into.
	NewRequest func() Request
	// Fn services the request and returns the result payload. It must not
	// panic, but callers recover if it does.
	Fn func(ctx context.Context, req Request) any
	// Failure builds the result payload reporting that requestID failed.
	Failure func(requestID, reason string) any
}

// RegisterCapability registers the handler for an inbound request event.
func (r *Registry) RegisterCapability(event string, handler *RegisteredCapability) {
	if _, exists := r.CapabilityRegistry[event]; exists {
		panic(fmt.Sprintf("capability handler for event '%s' already registered", event))
	}
	slog.Debug("Registering capability handler.", "event", event, "result_event", handler.ResultEvent)
	r.CapabilityRegistry[event] = handler
}

// RegisterStopper registers a function that silences a shared device.
func (r *Registry) RegisterStopper(name string, fn func()) {
	if _, exists := r.StopperRegistry[name]; exists {
		panic(fmt.Sprintf("stopper with name '%s' already registered", name))
	}
	slog.Debug("Registering stopper.", "name", name)
	r.StopperRegistry[name] = fn
}
