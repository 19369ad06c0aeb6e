package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/graphstore"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// DefaultRowDebounce is how long data rows are buffered before they are
// applied to the preview.
const DefaultRowDebounce = 100 * time.Millisecond

// DefaultQueueSize bounds the inbound event queue.
const DefaultQueueSize = 256

// eventFlushRows is an internal event posted by the row debounce timer.
const eventFlushRows = "bridge:flush_rows"

type inbound struct {
	event string
	args  []any
}

// Bridge owns the engine connection for one local workflow store.
type Bridge struct {
	transport Transport
	store     *graphstore.Store
	registry  *registry.Registry
	logger    *slog.Logger

	queue     chan inbound
	queueSize int
	done      chan struct{}
	ready     chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	workflowID string

	pending  *pendingSet
	rows     rowBuffer
	debounce time.Duration
	handlers sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithWorkflowID scopes the bridge to one workflow. Telemetry naming another
// workflow is ignored.
func WithWorkflowID(id string) Option {
	return func(b *Bridge) { b.workflowID = id }
}

// WithRowDebounce overrides DefaultRowDebounce.
func WithRowDebounce(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.debounce = d
		}
	}
}

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// New creates a bridge and subscribes it to the transport's inbound events.
// Capability events are taken from reg.
func New(t Transport, store *graphstore.Store, reg *registry.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		transport: t,
		store:     store,
		registry:  reg,
		logger:    slog.Default(),
		queueSize: DefaultQueueSize,
		debounce:  DefaultRowDebounce,
		done:      make(chan struct{}),
		ready:     make(chan struct{}),
		pending:   newPendingSet(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "bridge")
	b.queue = make(chan inbound, b.queueSize)

	events := []string{
		protocol.EventConnect,
		protocol.EventDisconnect,
		protocol.EventStarted,
		protocol.EventNodeStart,
		protocol.EventNodeComplete,
		protocol.EventLog,
		protocol.EventVariableUpdate,
		protocol.EventDataRow,
		protocol.EventCompleted,
		protocol.EventStopped,
	}
	events = append(events, reg.Events()...)
	for _, ev := range events {
		t.On(ev, func(args ...any) { b.enqueue(inbound{event: ev, args: args}) })
	}
	b.logger.Debug("Subscribed to engine events.", "count", len(events))
	return b
}

// WorkflowID returns the workflow the bridge is scoped to, or "".
func (b *Bridge) WorkflowID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workflowID
}

// SetWorkflowID rescopes the bridge.
func (b *Bridge) SetWorkflowID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workflowID = id
}

// Ready is closed once the first connection succeeds.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Run connects the transport and dispatches inbound events until ctx is
// done. Pending capability requests are dropped on return.
func (b *Bridge) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, b.logger)
	defer b.shutdown()

	b.logger.Info("🔌 Connecting to execution engine...")
	if err := b.transport.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to engine: %w", err)
	}
	close(b.ready)

	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("Dispatcher stopping.", "reason", ctx.Err())
			return nil
		case ev := <-b.queue:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bridge) shutdown() {
	b.closeOnce.Do(func() { close(b.done) })
	b.rows.stop()
	if n := b.pending.closeAll(); n > 0 {
		b.logger.Warn("Dropping unanswered capability requests.", "count", n)
	}
	b.handlers.Wait()
	if err := b.transport.Close(); err != nil {
		b.logger.Warn("Failed to close transport.", "error", err)
	}
}

// enqueue hands an event to the dispatcher. It blocks while the queue is
// full and gives up once the bridge has shut down.
func (b *Bridge) enqueue(ev inbound) {
	select {
	case b.queue <- ev:
	case <-b.done:
	}
}

func (b *Bridge) dispatch(ctx context.Context, ev inbound) {
	switch ev.event {
	case protocol.EventConnect:
		b.onConnect()
	case protocol.EventDisconnect:
		b.logger.Warn("Disconnected from engine.", "reason", firstArg(ev.args))
	case protocol.EventStarted:
		b.onStarted(ev.args)
	case protocol.EventNodeStart:
		b.onNodeStart(ev.args)
	case protocol.EventNodeComplete:
		b.onNodeComplete(ev.args)
	case protocol.EventLog:
		b.onLog(ev.args)
	case protocol.EventVariableUpdate:
		b.onVariableUpdate(ev.args)
	case protocol.EventDataRow:
		b.onDataRow(ev.args)
	case eventFlushRows:
		b.flushRows()
	case protocol.EventCompleted:
		b.onCompleted(ev.args)
	case protocol.EventStopped:
		b.onStopped(ev.args)
	default:
		if c, ok := b.registry.Capability(ev.event); ok {
			b.onCapability(ctx, ev.event, c, ev.args)
			return
		}
		b.logger.Debug("Ignoring unknown event.", "event", ev.event)
	}
}

// emit sends an outbound event. Emits while disconnected are dropped.
func (b *Bridge) emit(event string, payload any) bool {
	if !b.transport.Connected() {
		b.logger.Warn("Not connected, dropping outbound event.", "event", event)
		return false
	}
	if err := b.transport.Emit(event, payload); err != nil {
		b.logger.Error("Failed to emit event.", "event", event, "error", err)
		return false
	}
	b.logger.Debug("Emitted event.", "event", event)
	return true
}

// StopExecution asks the engine to stop the current run and silences local
// audio and speech.
func (b *Bridge) StopExecution() bool {
	b.registry.StopAll()
	return b.emit(protocol.EventStopExecution, protocol.StopExecution{WorkflowID: b.WorkflowID()})
}

// SetVerbose records the verbose preference and tells the engine.
func (b *Bridge) SetVerbose(on bool) bool {
	b.store.SetVerbose(on)
	return b.emit(protocol.EventSetVerboseLog, protocol.SetVerboseLog{Enabled: on})
}

// Pending returns the number of capability requests awaiting a result.
func (b *Bridge) Pending() int {
	return b.pending.len()
}
