package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/drafts"
	"github.com/vk/flowbridge/internal/workflow"
)

// ErrExecutionFailed is returned by Run when an executed workflow ends in
// the failed state.
var ErrExecutionFailed = errors.New("workflow execution failed")

// stopTimeout bounds the stop request sent when Run is interrupted.
const stopTimeout = 5 * time.Second

// Run connects to the engine and mirrors it into the store until ctx is
// done. With Execute set it starts the workflow and returns once the run
// reaches a terminal status.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.close()

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(a.config.HealthcheckPort); err != nil {
			return err
		}
	}

	if err := a.restoreWorkflow(ctx); err != nil {
		return err
	}

	var finished chan workflow.ExecutionStatus
	if a.config.Execute {
		finished = make(chan workflow.ExecutionStatus, 1)
		a.store.OnStatusChange(func(s workflow.ExecutionStatus) {
			if !s.IsTerminal() {
				return
			}
			select {
			case finished <- s:
			default:
			}
		})
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if a.drafts != nil {
		saver := drafts.NewAutosaver(a.store, a.drafts, a.settings.Drafts.Interval.Or(drafts.DefaultInterval), a.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			saver.Run(runCtx)
		}()
	}

	bridgeErr := make(chan error, 1)
	go func() { bridgeErr <- a.bridge.Run(runCtx) }()

	if !a.config.Execute {
		err := <-bridgeErr
		a.logger.Debug("App.Run method finished.")
		return err
	}

	select {
	case <-a.bridge.Ready():
	case err := <-bridgeErr:
		return err
	}

	id, err := a.startExecution(runCtx)
	if err != nil {
		cancel()
		<-bridgeErr
		return err
	}

	select {
	case status := <-finished:
		cancel()
		<-bridgeErr
		a.logger.Info("🏁 Execution finished.", "workflow_id", id, "status", status)
		if status == workflow.StatusFailed {
			return ErrExecutionFailed
		}
		return nil
	case err := <-bridgeErr:
		return err
	case <-ctx.Done():
		a.stopExecution(id)
		cancel()
		<-bridgeErr
		return nil
	}
}

// restoreWorkflow fills the store when a workflow id was given without a
// workflow file. A saved draft wins over the engine's copy.
func (a *App) restoreWorkflow(ctx context.Context) error {
	id := a.settings.Engine.WorkflowID
	if a.config.WorkflowPath != "" || id == "" {
		return nil
	}

	if a.drafts != nil {
		restored, err := drafts.Restore(ctx, a.drafts, id, a.store)
		if err != nil {
			a.logger.Warn("Ignoring unreadable draft.", "workflow_id", id, "error", err)
		}
		if restored {
			a.store.SetID(id)
			a.logger.Info("📝 Draft restored.", "workflow_id", id)
			return nil
		}
	}

	if a.api == nil {
		a.store.SetID(id)
		return nil
	}
	doc, err := a.api.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}
	a.store.Load(doc)
	a.store.SetID(id)
	a.logger.Info("📄 Workflow fetched.", "workflow_id", id, "nodes", len(doc.Nodes))
	return nil
}

// startExecution makes sure the engine holds the local document and asks it
// to run. It returns the workflow id the run belongs to.
func (a *App) startExecution(ctx context.Context) (string, error) {
	id := a.settings.Engine.WorkflowID
	switch {
	case id == "":
		created, err := a.api.Create(ctx, a.store.Document())
		if err != nil {
			return "", fmt.Errorf("failed to create workflow: %w", err)
		}
		id = created
		a.store.SetID(id)
		a.logger.Info("Workflow created on the engine.", "workflow_id", id)
	case a.config.WorkflowPath != "":
		if err := a.api.Update(ctx, id, a.store.Document()); err != nil {
			return "", fmt.Errorf("failed to update workflow %s: %w", id, err)
		}
	}
	a.bridge.SetWorkflowID(id)

	a.logger.Info("🚀 Starting workflow execution...", "workflow_id", id, "headless", a.config.Headless)
	if err := a.api.Execute(ctx, id, a.config.Headless); err != nil {
		return "", fmt.Errorf("failed to execute workflow %s: %w", id, err)
	}
	return id, nil
}

// stopExecution asks the engine to stop a run Run is abandoning.
func (a *App) stopExecution(id string) {
	if a.store.Status() != workflow.StatusRunning {
		return
	}
	a.logger.Warn("Interrupted, stopping the running workflow.", "workflow_id", id)
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.api.Stop(ctx, id); err != nil {
		a.logger.Error("Failed to stop workflow.", "workflow_id", id, "error", err)
	}
}

func (a *App) close() {
	_ = a.closeHealthCheckServer()
	if a.drafts != nil {
		if err := a.drafts.Close(); err != nil {
			a.logger.Warn("Failed to close draft store.", "error", err)
		}
	}
	if a.api != nil {
		a.api.Close()
	}
}
