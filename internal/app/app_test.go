package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/drafts"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/workflow"
)

const demoWorkflow = `{
	"id": "local-1",
	"name": "demo",
	"nodes": [{"id": "a", "type": "open_page", "position": {"x": 0, "y": 0}, "data": {"url": "https://example.com"}}],
	"edges": [],
	"variables": []
}`

// fakeTransport connects instantly and lets tests push engine events.
type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]func(args ...any)
	emitted  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]func(args ...any))}
}

func (f *fakeTransport) On(event string, fn func(args ...any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeTransport) Emit(event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeTransport) Connect(context.Context) error {
	f.fire(protocol.EventConnect, nil)
	return nil
}

func (f *fakeTransport) Connected() bool { return true }

func (f *fakeTransport) Close() error { return nil }

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

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "execute with file", cfg: Config{Execute: true, WorkflowPath: "wf.json"}},
		{name: "execute with id", cfg: Config{Execute: true, WorkflowID: "wf-1", Headless: true}},
		{name: "execute without workflow", cfg: Config{Execute: true}, wantErr: "requires a workflow"},
		{name: "headless without execute", cfg: Config{Headless: true}, wantErr: "Headless"},
		{name: "port out of range", cfg: Config{HealthcheckPort: 70000}, wantErr: "out of range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg, *cfg)
		})
	}
}

func TestNewApp_LoadsSettingsAndWorkflow(t *testing.T) {
	// --- Arrange ---
	settings := writeFile(t, "settings.yaml", `
engine:
  url: http://localhost:8000
drafts:
  backend: none
defaults:
  ai_chat:
    model: small
`)
	wf := writeFile(t, "workflow.json", demoWorkflow)

	// --- Act ---
	a, logs := SetupAppTest(t, &Config{ConfigPath: settings, WorkflowPath: wf, Verbose: true},
		WithTransport(newFakeTransport()))

	// --- Assert ---
	assert.Equal(t, "local-1", a.Store().ID())
	assert.Len(t, a.Store().Nodes(), 1)
	assert.True(t, a.Store().Verbose())
	assert.Nil(t, a.drafts)
	assert.Len(t, a.Registry().CapabilityRegistry, 4)

	id := a.Store().AddNode(workflow.KindAIChat, workflow.Position{})
	n, ok := a.Store().Node(id)
	require.True(t, ok)
	assert.Equal(t, "small", n.Data["model"])
	assert.Contains(t, logs.String(), "Workflow loaded.")
}

func TestNewApp_Panics(t *testing.T) {
	t.Setenv("FLOWBRIDGE_ENGINE_URL", "")
	t.Setenv("FLOWBRIDGE_API_URL", "")

	testCases := []struct {
		name   string
		cfg    *Config
		opts   []Option
		substr string
	}{
		{
			name:   "missing engine URL",
			cfg:    &Config{},
			substr: "engine URL is required",
		},
		{
			name:   "execute without API",
			cfg:    &Config{Execute: true, WorkflowID: "wf-1"},
			opts:   []Option{WithTransport(newFakeTransport())},
			substr: "requires the workflow API",
		},
		{
			name:   "invalid workflow file",
			cfg:    &Config{WorkflowPath: writeFile(t, "bad.json", `{"nodes": 1}`)},
			opts:   []Option{WithTransport(newFakeTransport())},
			substr: "not a valid workflow document",
		},
		{
			name:   "broken settings",
			cfg:    &Config{ConfigPath: writeFile(t, "bad.hcl", "engine {")},
			substr: "failed to parse",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				r := recover()
				require.NotNil(t, r, "NewApp should panic")
				err, ok := r.(error)
				require.True(t, ok, "panic value should be an error, got %T", r)
				assert.Contains(t, err.Error(), tc.substr)
			}()
			NewApp(&SafeBuffer{}, tc.cfg, tc.opts...)
		})
	}
}

func TestApp_HealthEndpoints(t *testing.T) {
	// --- Arrange ---
	a, _ := SetupAppTest(t, &Config{WorkflowPath: writeFile(t, "wf.json", demoWorkflow)},
		WithTransport(newFakeTransport()))
	a.Store().SetStatus(workflow.StatusRunning)
	mux := a.healthMux()

	// --- Act ---
	health := httptest.NewRecorder()
	mux.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	state := httptest.NewRecorder()
	mux.ServeHTTP(state, httptest.NewRequest(http.MethodGet, "/state", nil))

	// --- Assert ---
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "OK\n", health.Body.String())

	require.Equal(t, http.StatusOK, state.Code)
	assert.Equal(t, "application/json", state.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, sonic.Unmarshal(state.Body.Bytes(), &body))
	assert.Equal(t, "local-1", body["workflowId"])
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, float64(1), body["nodes"])
}

// engineServer fakes the workflow API. Executing a workflow replays a run
// over the transport that ends with finalStatus.
func engineServer(t *testing.T, ft *fakeTransport, finalStatus workflow.ExecutionStatus) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		switch r.Method + " " + r.URL.Path {
		case "POST /workflows":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "wf-1"}`))
		case "POST /workflows/wf-1/execute":
			w.WriteHeader(http.StatusOK)
			go func() {
				ft.fire(protocol.EventStarted, map[string]any{"workflowId": "wf-1"})
				ft.fire(protocol.EventCompleted, map[string]any{
					"workflowId": "wf-1",
					"result":     map[string]any{"status": string(finalStatus), "executedNodes": 1},
				})
			}()
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), calls...)
	}
}

func TestApp_RunExecutesWorkflow(t *testing.T) {
	// --- Arrange ---
	ft := newFakeTransport()
	srv, calls := engineServer(t, ft, workflow.StatusCompleted)
	a, logs := SetupAppTest(t, &Config{
		WorkflowPath: writeFile(t, "wf.json", demoWorkflow),
		APIURL:       srv.URL,
		Execute:      true,
	}, WithTransport(ft), WithDraftStore(drafts.NewMemoryStore()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// --- Act ---
	err := a.Run(ctx)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /workflows", "POST /workflows/wf-1/execute"}, calls())
	assert.Equal(t, "wf-1", a.Store().ID())
	assert.Equal(t, "wf-1", a.Bridge().WorkflowID())
	assert.Equal(t, workflow.StatusCompleted, a.Store().Status())
	assert.Contains(t, logs.String(), "Execution finished.")
}

func TestApp_RunReportsFailedExecution(t *testing.T) {
	ft := newFakeTransport()
	srv, _ := engineServer(t, ft, workflow.StatusFailed)
	a, _ := SetupAppTest(t, &Config{
		WorkflowPath: writeFile(t, "wf.json", demoWorkflow),
		APIURL:       srv.URL,
		Execute:      true,
	}, WithTransport(ft), WithDraftStore(drafts.NewMemoryStore()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.ErrorIs(t, a.Run(ctx), ErrExecutionFailed)
}

func TestApp_RunRestoresDraft(t *testing.T) {
	// --- Arrange ---
	store := drafts.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "wf-9", []byte(demoWorkflow)))

	a, logs := SetupAppTest(t, &Config{WorkflowID: "wf-9"},
		WithTransport(newFakeTransport()), WithDraftStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)

	// --- Act ---
	go func() { errCh <- a.Run(ctx) }()
	<-a.Bridge().Ready()
	cancel()

	// --- Assert ---
	require.NoError(t, <-errCh)
	assert.Equal(t, "wf-9", a.Store().ID())
	assert.Len(t, a.Store().Nodes(), 1)
	assert.Contains(t, logs.String(), "Draft restored.")

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, "wf-9")
}
