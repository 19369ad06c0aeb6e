package bridge

import "context"

// Transport is a bidirectional event channel to the engine.
type Transport interface {
	// On registers fn for every occurrence of event. Handlers must be
	// registered before Connect.
	On(event string, fn func(args ...any))
	Emit(event string, payload any) error
	Connect(ctx context.Context) error
	Connected() bool
	Close() error
}
