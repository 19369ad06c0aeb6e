package bridge

import (
	"fmt"

	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/workflow"
)

// decode parses an event payload and applies workflow scoping. It reports
// false when the event must be ignored. A missing payload leaves dst zero.
func (b *Bridge) decode(event string, args []any, dst protocol.Scoped) bool {
	if len(args) == 0 || args[0] == nil {
		return true
	}
	if err := protocol.Decode(args, dst); err != nil {
		b.logger.Warn("Dropping malformed event.", "event", event, "error", err)
		return false
	}
	scope := b.WorkflowID()
	if scope != "" && dst.Workflow() != "" && dst.Workflow() != scope {
		b.logger.Debug("Ignoring event for another workflow.", "event", event, "workflow_id", dst.Workflow())
		return false
	}
	return true
}

// onConnect announces the verbose preference and reconciles a run that was
// still marked running when the connection dropped. Events missed while
// disconnected are not replayed, so such a run is closed locally.
func (b *Bridge) onConnect() {
	b.logger.Info("Connected to engine.")
	b.emit(protocol.EventSetVerboseLog, protocol.SetVerboseLog{Enabled: b.store.Verbose()})

	if b.store.Status() == workflow.StatusRunning {
		b.logger.Warn("Run was in progress across a reconnect, marking it completed.")
		b.rows.discard()
		b.store.SetStatus(workflow.StatusCompleted)
	}
}

func (b *Bridge) onStarted(args []any) {
	var p protocol.Started
	if !b.decode(protocol.EventStarted, args, &p) {
		return
	}
	b.rows.discard()
	b.store.ClearPreview()
	b.store.SetStatus(workflow.StatusRunning)
	b.logger.Info("🚀 Execution started.", "workflow_id", p.WorkflowID)
}

func (b *Bridge) onNodeStart(args []any) {
	var p protocol.NodeEvent
	if !b.decode(protocol.EventNodeStart, args, &p) {
		return
	}
	b.store.SetCurrentNode(p.NodeID)
}

func (b *Bridge) onNodeComplete(args []any) {
	var p protocol.NodeEvent
	if !b.decode(protocol.EventNodeComplete, args, &p) {
		return
	}
	if b.store.CurrentNode() == p.NodeID {
		b.store.SetCurrentNode("")
	}
	b.logger.Debug("Node finished.", "node_id", p.NodeID, "success", p.Success != nil && *p.Success)
}

// onLog keeps error, user and system lines always and routine lines only in
// verbose mode.
func (b *Bridge) onLog(args []any) {
	var p protocol.Log
	if !b.decode(protocol.EventLog, args, &p) {
		return
	}
	entry := p.Log
	if !b.store.Verbose() && entry.Level != workflow.LevelError && !entry.IsUserLog && !entry.IsSystemLog {
		return
	}
	b.store.AddLog(entry)
}

func (b *Bridge) onVariableUpdate(args []any) {
	var p protocol.VariableUpdate
	if !b.decode(protocol.EventVariableUpdate, args, &p) {
		return
	}
	if p.Name == "" {
		b.logger.Warn("Dropping variable update without a name.")
		return
	}
	b.store.SetVariableValue(p.Name, p.Value)
}

func (b *Bridge) onDataRow(args []any) {
	var p protocol.DataRow
	if !b.decode(protocol.EventDataRow, args, &p) {
		return
	}
	if p.Row == nil {
		return
	}
	if b.store.Status() != workflow.StatusRunning {
		b.logger.Debug("Dropping data row outside a run.")
		return
	}
	if b.rows.add(p.Row) {
		b.rows.schedule(b.debounce, func() { b.enqueue(inbound{event: eventFlushRows}) })
	}
}

func (b *Bridge) flushRows() {
	rows := b.rows.take()
	if len(rows) == 0 {
		return
	}
	kept := b.store.AddDataRows(rows)
	if dropped := len(rows) - kept; dropped > 0 {
		b.logger.Debug("Preview full, dropping rows.", "dropped", dropped)
	}
}

func (b *Bridge) onCompleted(args []any) {
	var p protocol.Completed
	if !b.decode(protocol.EventCompleted, args, &p) {
		return
	}
	b.flushRows()
	b.rows.stop()

	status := p.Result.Status
	if !status.IsTerminal() {
		status = workflow.StatusCompleted
	}
	b.store.SetStatus(status)
	b.registry.StopAll()

	level, outcome := workflow.LevelSuccess, "completed"
	if status != workflow.StatusCompleted {
		level, outcome = workflow.LevelError, "failed"
	}
	b.store.AddLog(workflow.LogEntry{
		Level:       level,
		Message:     fmt.Sprintf("Execution %s: %d nodes executed, %d failed", outcome, p.Result.ExecutedNodes, p.Result.FailedNodes),
		IsSystemLog: true,
	})
	b.logger.Info("🏁 Execution finished.", "status", status, "executed", p.Result.ExecutedNodes, "failed", p.Result.FailedNodes)
}

func (b *Bridge) onStopped(args []any) {
	var p protocol.Stopped
	if !b.decode(protocol.EventStopped, args, &p) {
		return
	}
	b.flushRows()
	b.rows.stop()

	b.store.SetStatus(workflow.StatusStopped)
	b.registry.StopAll()
	b.store.AddLog(workflow.LogEntry{
		Level:       workflow.LevelWarning,
		Message:     "Execution stopped",
		IsSystemLog: true,
	})
	b.logger.Info("🛑 Execution stopped.")
}
