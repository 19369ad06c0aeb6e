package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Reconnection defaults.
const (
	DefaultReconnectionAttempts = 10
	DefaultReconnectionDelay    = time.Second
	DefaultConnectTimeout       = 120 * time.Second
)

// SocketIOOptions configures a SocketIOTransport.
type SocketIOOptions struct {
	URL                  string
	Namespace            string
	InsecureSkipVerify   bool
	ReconnectionAttempts int
	ReconnectionDelay    time.Duration
	ConnectTimeout       time.Duration
}

func (o SocketIOOptions) withDefaults() SocketIOOptions {
	if o.Namespace == "" {
		o.Namespace = "/"
	}
	if o.ReconnectionAttempts <= 0 {
		o.ReconnectionAttempts = DefaultReconnectionAttempts
	}
	if o.ReconnectionDelay <= 0 {
		o.ReconnectionDelay = DefaultReconnectionDelay
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	return o
}

// SocketIOTransport is a Transport over a socket.io websocket connection.
// The underlying manager reconnects on its own with a fixed delay.
type SocketIOTransport struct {
	io      *socket.Socket
	opts    SocketIOOptions
	logger  *slog.Logger
	address string
}

// NewSocketIOTransport prepares a client for opts.URL without connecting.
func NewSocketIOTransport(opts SocketIOOptions, logger *slog.Logger) (*SocketIOTransport, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("transport", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("engine URL %q must be absolute", opts.URL)
	}

	sOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sOpts.SetTransports(types.NewSet(transports.WebSocket))
	sOpts.SetAutoConnect(false)
	sOpts.SetReconnection(true)
	sOpts.SetReconnectionAttempts(float64(opts.ReconnectionAttempts))
	sOpts.SetReconnectionDelay(float64(opts.ReconnectionDelay.Milliseconds()))
	sOpts.SetReconnectionDelayMax(float64(opts.ReconnectionDelay.Milliseconds()))
	sOpts.SetRandomizationFactor(0)
	sOpts.SetTimeout(opts.ConnectTimeout)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sOpts)
	manager.On(types.EventName("reconnect_attempt"), func(args ...any) {
		logger.Info("Reconnecting to engine...", "attempt", firstArg(args))
	})
	manager.On(types.EventName("reconnect"), func(...any) {
		logger.Info("Reconnected to engine")
	})
	manager.On(types.EventName("reconnect_failed"), func(...any) {
		logger.Error("Giving up reconnecting to engine", "attempts", opts.ReconnectionAttempts)
	})

	return &SocketIOTransport{
		io:      manager.Socket(opts.Namespace, sOpts),
		opts:    opts,
		logger:  logger,
		address: baseURL,
	}, nil
}

// On implements Transport.
func (t *SocketIOTransport) On(event string, fn func(args ...any)) {
	t.io.On(types.EventName(event), fn)
}

// Emit implements Transport.
func (t *SocketIOTransport) Emit(event string, payload any) error {
	return t.io.Emit(event, payload)
}

// Connect opens the connection and waits for the first handshake.
func (t *SocketIOTransport) Connect(ctx context.Context) error {
	connectChan := make(chan error, 1)

	t.io.Once(types.EventName("connect"), func(...any) {
		t.logger.Info("Successfully connected", "sid", t.io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	t.io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, ok := firstArg(errs).(error)
		if !ok {
			err = errors.New("connection refused")
		}
		t.logger.Debug("EVENT HANDLER: 'connect_error' event fired", "error", err)
		select {
		case connectChan <- err:
		default:
		}
	})

	t.logger.Debug("Initiating connection...")
	t.io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			t.io.Disconnect()
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		t.io.Disconnect()
		return fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(t.opts.ConnectTimeout):
		t.io.Disconnect()
		return fmt.Errorf("timed out after %s waiting for socket.io connection", t.opts.ConnectTimeout)
	}
}

// Connected implements Transport.
func (t *SocketIOTransport) Connected() bool {
	return t.io.Connected()
}

// Close implements Transport.
func (t *SocketIOTransport) Close() error {
	t.logger.Info("Closing engine connection", "sid", t.io.Id())
	t.io.Disconnect()
	return nil
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
