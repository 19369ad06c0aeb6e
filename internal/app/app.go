package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/vk/flowbridge/internal/bridge"
	"github.com/vk/flowbridge/internal/config"
	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/drafts"
	"github.com/vk/flowbridge/internal/graphstore"
	"github.com/vk/flowbridge/internal/registry"
	"github.com/vk/flowbridge/internal/workflowapi"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	settings *config.Settings
	registry *registry.Registry
	store    *graphstore.Store
	bridge   *bridge.Bridge
	api      *workflowapi.Client
	drafts   drafts.Store

	httpServer *http.Server
}

// Option customizes NewApp. Options are mostly used by tests to replace the
// network-facing pieces.
type Option func(*options)

type options struct {
	modules   []registry.Module
	transport bridge.Transport
	drafts    drafts.Store
	apiClient *http.Client
}

// WithModules replaces the core capability modules.
func WithModules(mods ...registry.Module) Option {
	return func(o *options) { o.modules = mods }
}

// WithTransport replaces the socket.io transport.
func WithTransport(t bridge.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithDraftStore replaces the draft store selected by the settings.
func WithDraftStore(s drafts.Store) Option {
	return func(o *options) { o.drafts = s }
}

// WithAPIHTTPClient sets the HTTP client used by the workflow API client.
func WithAPIHTTPClient(c *http.Client) Option {
	return func(o *options) { o.apiClient = c }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration errors are fatal and panic.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := config.LoadDotEnv(ctx, appConfig.EnvFiles...); err != nil {
		panic(err)
	}
	settings, err := config.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load settings: %w", err))
	}
	applyOverrides(settings, appConfig)
	logger.Debug("Settings loaded.", "engine_url", settings.Engine.URL, "drafts", settings.Drafts.BackendName())

	store := graphstore.New(
		graphstore.WithLogger(logger),
		graphstore.WithKindDefaults(settings.KindDefaults()),
	)
	store.SetVerbose(appConfig.Verbose)
	if appConfig.WorkflowPath != "" {
		data, err := os.ReadFile(appConfig.WorkflowPath)
		if err != nil {
			panic(fmt.Errorf("failed to read workflow: %w", err))
		}
		if !store.Import(data) {
			panic(fmt.Errorf("failed to import workflow %s: not a valid workflow document", appConfig.WorkflowPath))
		}
		logger.Info("📄 Workflow loaded.", "path", appConfig.WorkflowPath, "nodes", len(store.Nodes()), "edges", len(store.Edges()))
	}

	reg := registry.New()
	modules := o.modules
	if len(modules) == 0 {
		modules = coreModules(settings, logger)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.ValidateRegistry(ctx); err != nil {
		// This is a programmer error in a module, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	transport := o.transport
	if transport == nil {
		if settings.Engine.URL == "" {
			panic(fmt.Errorf("engine URL is required: use --engine-url, the engine block or %sENGINE_URL", config.EnvPrefix))
		}
		transport, err = bridge.NewSocketIOTransport(bridge.SocketIOOptions{
			URL:                  settings.Engine.URL,
			Namespace:            settings.Engine.Namespace,
			InsecureSkipVerify:   settings.Engine.InsecureSkipVerify,
			ReconnectionAttempts: settings.Engine.ReconnectionAttempts,
			ReconnectionDelay:    settings.Engine.ReconnectionDelay.Or(bridge.DefaultReconnectionDelay),
			ConnectTimeout:       settings.Engine.ConnectTimeout.Or(bridge.DefaultConnectTimeout),
		}, logger)
		if err != nil {
			panic(err)
		}
	}

	var bridgeOpts []bridge.Option
	bridgeOpts = append(bridgeOpts, bridge.WithLogger(logger))
	if settings.Engine.WorkflowID != "" {
		bridgeOpts = append(bridgeOpts, bridge.WithWorkflowID(settings.Engine.WorkflowID))
	}
	br := bridge.New(transport, store, reg, bridgeOpts...)

	var api *workflowapi.Client
	if settings.Engine.APIURL != "" {
		apiOpts := []workflowapi.Option{workflowapi.WithLogger(logger)}
		if o.apiClient != nil {
			apiOpts = append(apiOpts, workflowapi.WithHTTPClient(o.apiClient))
		}
		api, err = workflowapi.NewClient(settings.Engine.APIURL, apiOpts...)
		if err != nil {
			panic(err)
		}
	}
	if appConfig.Execute && api == nil {
		panic(fmt.Errorf("executing a workflow requires the workflow API: use --api-url, the engine block or %sAPI_URL", config.EnvPrefix))
	}

	draftStore := o.drafts
	if draftStore == nil {
		draftStore, err = newDraftStore(ctx, settings.Drafts)
		if err != nil {
			panic(err)
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		settings: settings,
		registry: reg,
		store:    store,
		bridge:   br,
		api:      api,
		drafts:   draftStore,
	}
}

// applyOverrides copies non-empty flag values over the loaded settings.
func applyOverrides(s *config.Settings, c *Config) {
	if c.EngineURL != "" {
		s.Engine.URL = c.EngineURL
	}
	if c.APIURL != "" {
		s.Engine.APIURL = c.APIURL
	}
	if c.WorkflowID != "" {
		s.Engine.WorkflowID = c.WorkflowID
	}
}

// newDraftStore opens the backend named by the settings. The none backend
// returns a nil store.
func newDraftStore(ctx context.Context, d config.DraftSettings) (drafts.Store, error) {
	switch d.BackendName() {
	case config.BackendNone:
		return nil, nil
	case config.BackendRedis:
		store, err := drafts.NewRedisStore(ctx, drafts.RedisOptions{
			Addr:      d.RedisAddr,
			Password:  d.RedisPassword,
			DB:        d.RedisDB,
			KeyPrefix: d.KeyPrefix,
			TTL:       d.TTL.Or(0),
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return drafts.NewMemoryStore(), nil
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Store returns the workflow store the app edits and mirrors runs into.
func (a *App) Store() *graphstore.Store {
	return a.store
}

// Bridge returns the engine bridge.
func (a *App) Bridge() *bridge.Bridge {
	return a.bridge
}
