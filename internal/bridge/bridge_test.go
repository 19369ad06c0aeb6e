package bridge

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/graphstore"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
	"github.com/vk/flowbridge/internal/workflow"
)

type emission struct {
	event   string
	payload any
}

type fakeTransport struct {
	mu         sync.Mutex
	handlers   map[string]func(args ...any)
	emitted    []emission
	connected  bool
	connectErr error
	closed     bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]func(args ...any))}
}

func (f *fakeTransport) On(event string, fn func(args ...any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, emission{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.connected = false
	return nil
}

func (f *fakeTransport) setConnected(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = on
}

// fire delivers an engine event the way the socket client would.
func (f *fakeTransport) fire(event string, payload any) {
	f.mu.Lock()
	fn := f.handlers[event]
	f.mu.Unlock()
	if fn == nil {
		return
	}
	if payload == nil {
		fn()
		return
	}
	fn(payload)
}

func (f *fakeTransport) sent(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.emitted {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

type harness struct {
	bridge    *Bridge
	transport *fakeTransport
	store     *graphstore.Store
	stops     *atomic.Int32
}

func startBridge(t *testing.T, reg *registry.Registry, opts ...Option) *harness {
	t.Helper()
	if reg == nil {
		reg = registry.New()
	}
	stops := new(atomic.Int32)
	reg.RegisterStopper("test", func() { stops.Add(1) })

	ft := newFakeTransport()
	store := graphstore.New()
	b := New(ft, store, reg, append([]Option{WithRowDebounce(10 * time.Millisecond)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()
	require.Eventually(t, ft.Connected, time.Second, time.Millisecond)

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	return &harness{bridge: b, transport: ft, store: store, stops: stops}
}

func (h *harness) status() workflow.ExecutionStatus { return h.store.Status() }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 2*time.Millisecond)
}

func TestRun_ConnectFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.connectErr = errors.New("refused")
	b := New(ft, graphstore.New(), registry.New())

	err := b.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
	assert.True(t, ft.closed)
}

func TestConnect_AnnouncesVerboseAndReconcilesOnce(t *testing.T) {
	// --- Arrange ---
	h := startBridge(t, nil)
	var transitions atomic.Int32
	h.store.OnStatusChange(func(s workflow.ExecutionStatus) {
		if s == workflow.StatusCompleted {
			transitions.Add(1)
		}
	})
	h.store.SetVerbose(true)
	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })
	h.store.SetCurrentNode("n1")

	// --- Act ---
	h.transport.fire(protocol.EventDisconnect, "transport close")
	h.transport.fire(protocol.EventConnect, nil)
	h.transport.fire(protocol.EventConnect, nil)

	// --- Assert ---
	waitFor(t, func() bool { return len(h.transport.sent(protocol.EventSetVerboseLog)) == 2 })
	assert.Equal(t, workflow.StatusCompleted, h.status())
	assert.Equal(t, int32(1), transitions.Load(), "reconciliation happens exactly once")
	assert.Empty(t, h.store.CurrentNode())
	assert.Equal(t, protocol.SetVerboseLog{Enabled: true}, h.transport.sent(protocol.EventSetVerboseLog)[0])
}

func TestStarted_ClearsPreview(t *testing.T) {
	h := startBridge(t, nil)
	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })
	h.store.AddDataRows([]workflow.DataRow{{"a": 1}})

	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})

	waitFor(t, func() bool { return len(h.store.Preview()) == 0 })
}

func TestLog_Filtering(t *testing.T) {
	// --- Arrange ---
	h := startBridge(t, nil)
	send := func(msg string, level workflow.LogLevel, user, system bool) {
		h.transport.fire(protocol.EventLog, map[string]any{
			"workflowId": "wf",
			"log": map[string]any{
				"message": msg, "level": string(level), "isUserLog": user, "isSystemLog": system,
			},
		})
	}

	// --- Act ---
	send("routine", workflow.LevelInfo, false, false)
	send("boom", workflow.LevelError, false, false)
	send("hello", workflow.LevelInfo, true, false)
	send("system", workflow.LevelInfo, false, true)
	waitFor(t, func() bool { return len(h.store.Logs()) == 3 })
	h.bridge.SetVerbose(true)
	send("detail", workflow.LevelInfo, false, false)

	// --- Assert ---
	waitFor(t, func() bool { return len(h.store.Logs()) == 4 })
	var msgs []string
	for _, l := range h.store.Logs() {
		msgs = append(msgs, l.Message)
	}
	assert.Equal(t, []string{"boom", "hello", "system", "detail"}, msgs)
	assert.Equal(t, []any{protocol.SetVerboseLog{Enabled: true}}, h.transport.sent(protocol.EventSetVerboseLog))
}

func TestVariableUpdate_Upserts(t *testing.T) {
	h := startBridge(t, nil)
	require.NoError(t, h.store.AddVariable(workflow.Variable{Name: "count", Value: 1.0}))

	h.transport.fire(protocol.EventVariableUpdate, map[string]any{"workflowId": "wf", "name": "count", "value": 5})
	h.transport.fire(protocol.EventVariableUpdate, map[string]any{"workflowId": "wf", "name": "fresh", "value": "x"})

	waitFor(t, func() bool { _, ok := h.store.Variable("fresh"); return ok })
	v, _ := h.store.Variable("count")
	assert.EqualValues(t, 5, v.Value)
	assert.Len(t, h.store.Variables(), 2)
}

func TestDataRows_DebouncedAndCapped(t *testing.T) {
	// --- Arrange ---
	h := startBridge(t, nil)
	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })

	// --- Act ---
	for i := 0; i < 25; i++ {
		h.transport.fire(protocol.EventDataRow, map[string]any{"workflowId": "wf", "row": map[string]any{"i": i}})
	}

	// --- Assert ---
	waitFor(t, func() bool { return len(h.store.Preview()) == graphstore.MaxPreviewRows })
	preview := h.store.Preview()
	assert.EqualValues(t, 0, preview[0]["i"], "row order is preserved")
	assert.EqualValues(t, 19, preview[19]["i"])
}

func TestDataRows_DroppedWhenNotRunning(t *testing.T) {
	h := startBridge(t, nil)

	h.transport.fire(protocol.EventDataRow, map[string]any{"workflowId": "wf", "row": map[string]any{"i": 1}})
	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, h.store.Preview())
}

func TestCompleted_FlushesRowsThenSummarizes(t *testing.T) {
	// --- Arrange ---
	h := startBridge(t, nil, WithRowDebounce(time.Hour))
	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "wf"})
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })
	h.transport.fire(protocol.EventDataRow, map[string]any{"workflowId": "wf", "row": map[string]any{"k": "v"}})

	// --- Act ---
	h.transport.fire(protocol.EventCompleted, map[string]any{
		"workflowId": "wf",
		"result":     map[string]any{"status": "completed", "executedNodes": 3, "failedNodes": 0},
	})

	// --- Assert ---
	waitFor(t, func() bool { return h.status() == workflow.StatusCompleted })
	assert.Len(t, h.store.Preview(), 1, "buffered rows land before the run closes")
	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, workflow.LevelSuccess, logs[0].Level)
	assert.Equal(t, "Execution completed: 3 nodes executed, 0 failed", logs[0].Message)
	assert.Equal(t, int32(1), h.stops.Load())
}

func TestCompleted_Failed(t *testing.T) {
	h := startBridge(t, nil)

	h.transport.fire(protocol.EventCompleted, map[string]any{
		"workflowId": "wf",
		"result":     map[string]any{"status": "failed", "executedNodes": 4, "failedNodes": 1},
	})

	waitFor(t, func() bool { return h.status() == workflow.StatusFailed })
	logs := h.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, workflow.LevelError, logs[0].Level)
	assert.Equal(t, "Execution failed: 4 nodes executed, 1 failed", logs[0].Message)
}

func TestStopped(t *testing.T) {
	h := startBridge(t, nil)
	h.transport.fire(protocol.EventStarted, nil)
	waitFor(t, func() bool { return h.status() == workflow.StatusRunning })

	h.transport.fire(protocol.EventStopped, map[string]any{"workflowId": "wf"})

	waitFor(t, func() bool { return h.status() == workflow.StatusStopped })
	assert.Equal(t, int32(1), h.stops.Load())
}

func TestScoping_IgnoresOtherWorkflows(t *testing.T) {
	h := startBridge(t, nil, WithWorkflowID("mine"))

	h.transport.fire(protocol.EventStarted, map[string]any{"workflowId": "theirs"})
	h.transport.fire(protocol.EventVariableUpdate, map[string]any{"workflowId": "theirs", "name": "x", "value": 1})
	h.transport.fire(protocol.EventVariableUpdate, map[string]any{"workflowId": "mine", "name": "y", "value": 1})

	waitFor(t, func() bool { _, ok := h.store.Variable("y"); return ok })
	_, ok := h.store.Variable("x")
	assert.False(t, ok)
	assert.Equal(t, workflow.StatusPending, h.status())
}

func TestStopExecution(t *testing.T) {
	h := startBridge(t, nil, WithWorkflowID("wf-9"))

	assert.True(t, h.bridge.StopExecution())
	assert.Equal(t, []any{protocol.StopExecution{WorkflowID: "wf-9"}}, h.transport.sent(protocol.EventStopExecution))
	assert.Equal(t, int32(1), h.stops.Load())

	h.transport.setConnected(false)
	assert.False(t, h.bridge.StopExecution(), "emits while disconnected are dropped")
	assert.Len(t, h.transport.sent(protocol.EventStopExecution), 1)
	assert.Equal(t, int32(2), h.stops.Load(), "local devices are silenced regardless")
}

type echoRequest struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
}

func (r *echoRequest) ID() string { return r.RequestID }

type echoResult struct {
	RequestID string
	Value     string
	Error     string
}

func echoCapability(timeout time.Duration, fn func(ctx context.Context, r *echoRequest) string) *registry.RegisteredCapability {
	return &registry.RegisteredCapability{
		ResultEvent: "echo_result",
		Timeout:     timeout,
		NewRequest:  func() registry.Request { return new(echoRequest) },
		Fn: func(ctx context.Context, req registry.Request) any {
			r := req.(*echoRequest)
			return echoResult{RequestID: r.RequestID, Value: fn(ctx, r)}
		},
		Failure: func(id, reason string) any { return echoResult{RequestID: id, Error: reason} },
	}
}

func TestCapability_OneResultPerRequest(t *testing.T) {
	// --- Arrange ---
	release := make(chan struct{})
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(time.Minute, func(_ context.Context, r *echoRequest) string {
		<-release
		return r.Text
	}))
	h := startBridge(t, reg)

	// --- Act ---
	h.transport.fire("execution:echo", map[string]any{"requestId": "r1", "text": "hi"})
	h.transport.fire("execution:echo", map[string]any{"requestId": "r1", "text": "again"})
	waitFor(t, func() bool { return h.bridge.Pending() == 1 })
	close(release)

	// --- Assert ---
	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []any{echoResult{RequestID: "r1", Value: "hi"}}, h.transport.sent("echo_result"))
	assert.Zero(t, h.bridge.Pending())
}

func TestCapability_DeadlineWinsOverLateResult(t *testing.T) {
	// --- Arrange ---
	release := make(chan struct{})
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(20*time.Millisecond, func(_ context.Context, r *echoRequest) string {
		<-release
		return "late"
	}))
	h := startBridge(t, reg)

	// --- Act ---
	h.transport.fire("execution:echo", map[string]any{"requestId": "r2"})
	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })
	close(release)
	time.Sleep(20 * time.Millisecond)

	// --- Assert ---
	results := h.transport.sent("echo_result")
	require.Len(t, results, 1)
	res := results[0].(echoResult)
	assert.Equal(t, "r2", res.RequestID)
	assert.Contains(t, res.Error, "timed out")
}

func TestCapability_PanicBecomesFailure(t *testing.T) {
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(time.Minute, func(context.Context, *echoRequest) string {
		panic("kaboom")
	}))
	h := startBridge(t, reg)

	h.transport.fire("execution:echo", map[string]any{"requestId": "r3"})

	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })
	res := h.transport.sent("echo_result")[0].(echoResult)
	assert.Contains(t, res.Error, "kaboom")
}

func TestCapability_MalformedOrAnonymousIgnored(t *testing.T) {
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(time.Minute, func(_ context.Context, r *echoRequest) string { return r.Text }))
	h := startBridge(t, reg)

	h.transport.fire("execution:echo", "not json")
	h.transport.fire("execution:echo", map[string]any{"text": "no id"})
	h.transport.fire("execution:echo", map[string]any{"requestId": "ok", "text": "t"})

	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })
	assert.Equal(t, echoResult{RequestID: "ok", Value: "t"}, h.transport.sent("echo_result")[0])
}

func TestPendingSet(t *testing.T) {
	p := newPendingSet()
	var expired atomic.Bool
	ctxA, cancelA := context.WithCancel(context.Background())
	ctxC, cancelC := context.WithCancel(context.Background())

	require.True(t, p.add("a", time.Hour, cancelA, func() {}))
	assert.False(t, p.add("a", time.Hour, nil, func() {}), "duplicate ids are refused")
	require.True(t, p.add("b", 5*time.Millisecond, nil, func() { expired.Store(p.resolve("b")) }))

	require.Eventually(t, expired.Load, time.Second, time.Millisecond)
	assert.NoError(t, ctxA.Err())
	assert.True(t, p.resolve("a"))
	assert.ErrorIs(t, ctxA.Err(), context.Canceled, "resolving cancels the handler context")
	assert.False(t, p.resolve("a"), "a handle resolves once")

	p.add("c", time.Hour, cancelC, func() {})
	assert.Equal(t, 1, p.closeAll())
	assert.ErrorIs(t, ctxC.Err(), context.Canceled)
	assert.False(t, p.add("d", time.Hour, nil, func() {}))
}

func TestCapability_DeadlineCancelsHandler(t *testing.T) {
	// --- Arrange ---
	handlerDone := make(chan struct{})
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(20*time.Millisecond, func(ctx context.Context, r *echoRequest) string {
		<-ctx.Done()
		close(handlerDone)
		return "cancelled"
	}))
	h := startBridge(t, reg)

	// --- Act ---
	h.transport.fire("execution:echo", map[string]any{"requestId": "r9"})
	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })

	// --- Assert ---
	select {
	case <-handlerDone:
	case <-time.After(time.Second):
		t.Fatal("handler context still live after the deadline result was emitted")
	}
	time.Sleep(20 * time.Millisecond)
	results := h.transport.sent("echo_result")
	require.Len(t, results, 1, "the cancelled handler must not answer twice")
	assert.Equal(t, echoResult{RequestID: "r9", Error: "timed out after 20ms"}, results[0])
	assert.Zero(t, h.bridge.Pending())
}

// lockedBuffer is a log sink safe for concurrent writers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func TestCapability_HandlerLoggerScopedToRequest(t *testing.T) {
	// --- Arrange ---
	logs := &lockedBuffer{}
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(time.Minute, func(ctx context.Context, r *echoRequest) string {
		ctxlog.FromContext(ctx).Info("Echoing.")
		return r.Text
	}))
	h := startBridge(t, reg, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	// --- Act ---
	h.transport.fire("execution:echo", map[string]any{"requestId": "r11", "text": "hey"})
	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })

	// --- Assert ---
	assert.Contains(t, logs.String(), `msg=Echoing. component=bridge event=execution:echo request_id=r11`)
}

func TestCapability_HandlerContextCancelledAfterResult(t *testing.T) {
	// --- Arrange ---
	captured := make(chan context.Context, 1)
	reg := registry.New()
	reg.RegisterCapability("execution:echo", echoCapability(time.Minute, func(ctx context.Context, r *echoRequest) string {
		captured <- ctx
		return r.Text
	}))
	h := startBridge(t, reg)

	// --- Act ---
	h.transport.fire("execution:echo", map[string]any{"requestId": "r10", "text": "ok"})
	waitFor(t, func() bool { return len(h.transport.sent("echo_result")) == 1 })

	// --- Assert ---
	ctx := <-captured
	require.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, echoResult{RequestID: "r10", Value: "ok"}, h.transport.sent("echo_result")[0])
}

func TestReady_ClosedAfterConnect(t *testing.T) {
	ft := newFakeTransport()
	ft.connectErr = errors.New("refused")
	b := New(ft, graphstore.New(), registry.New())
	require.Error(t, b.Run(context.Background()))

	select {
	case <-b.Ready():
		t.Fatal("Ready must stay open when the connection failed")
	default:
	}

	h := startBridge(t, nil)
	select {
	case <-h.bridge.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready was not closed after connecting")
	}
}
