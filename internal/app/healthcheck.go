package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vk/flowbridge/internal/workflow"
)

// stateResponse is the body served on /state.
type stateResponse struct {
	WorkflowID  string              `json:"workflowId"`
	Status      string              `json:"status"`
	CurrentNode string              `json:"currentNode,omitempty"`
	Nodes       int                 `json:"nodes"`
	Edges       int                 `json:"edges"`
	Pending     int                 `json:"pendingRequests"`
	Variables   []workflow.Variable `json:"variables"`
	Preview     []workflow.DataRow  `json:"preview"`
	Logs        []workflow.LogEntry `json:"logs"`
}

// healthHandler creates an http.Handler that logs requests to the provided logger.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// stateHandler serves a snapshot of the mirrored execution state.
func (a *App) stateHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("State endpoint hit.", "remote_addr", r.RemoteAddr)
	body, err := sonic.Marshal(stateResponse{
		WorkflowID:  a.store.ID(),
		Status:      string(a.store.Status()),
		CurrentNode: a.store.CurrentNode(),
		Nodes:       len(a.store.Nodes()),
		Edges:       len(a.store.Edges()),
		Pending:     a.bridge.Pending(),
		Variables:   a.store.Variables(),
		Preview:     a.store.Preview(),
		Logs:        a.store.Logs(),
	})
	if err != nil {
		a.logger.Error("Failed to encode state.", "error", err)
		http.Error(w, "failed to encode state", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/state", a.stateHandler)
	return mux
}

// startHealthcheckServer binds the health check port and serves it in the
// background. A port that cannot be bound is reported as an error.
func (a *App) startHealthcheckServer(port int) error {
	a.logger.Debug("Configuring health check server.")
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}

	a.httpServer = &http.Server{
		Handler:           a.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeHealthCheckServer() error {
	a.logger.Debug("Closing health check server...")
	if a.httpServer == nil {
		a.logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Health check server shut down gracefully.")
	return nil
}
