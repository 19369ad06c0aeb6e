package graphstore

import (
	"github.com/vk/flowbridge/internal/workflow"
)

// SetStatus records the execution status and notifies status hooks.
func (s *Store) SetStatus(status workflow.ExecutionStatus) {
	s.mu.Lock()
	s.status = status
	if status.IsTerminal() {
		s.currentNode = ""
	}
	hooks := append([]func(workflow.ExecutionStatus){}, s.statusHooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(status)
	}
}

// Status returns the current execution status.
func (s *Store) Status() workflow.ExecutionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetCurrentNode records the node the engine is executing.
func (s *Store) SetCurrentNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentNode = id
}

func (s *Store) CurrentNode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentNode
}

// SetVerbose toggles retention of routine per-step log lines.
func (s *Store) SetVerbose(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbose = on
}

func (s *Store) Verbose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbose
}

// AddLog appends entry to the log ring, evicting the oldest entries past
// MaxLogs. Missing ids and timestamps are filled in.
func (s *Store) AddLog(entry workflow.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.newID()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = s.timestamp()
	}
	if entry.Level == "" {
		entry.Level = workflow.LevelInfo
	}
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - MaxLogs; over > 0 {
		s.logs = append([]workflow.LogEntry(nil), s.logs[over:]...)
	}
}

// Logs returns the retained log entries, oldest first.
func (s *Store) Logs() []workflow.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]workflow.LogEntry(nil), s.logs...)
}

func (s *Store) ClearLogs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
}

// AddDataRows appends rows to the preview while an execution is running,
// up to MaxPreviewRows. It returns how many rows were kept; the rest are
// dropped silently.
func (s *Store) AddDataRows(rows []workflow.DataRow) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != workflow.StatusRunning {
		return 0
	}
	room := MaxPreviewRows - len(s.preview)
	if room <= 0 {
		return 0
	}
	if len(rows) > room {
		rows = rows[:room]
	}
	for _, r := range rows {
		s.preview = append(s.preview, workflow.DataRow(cloneMap(r)))
	}
	return len(rows)
}

// ClearPreview empties the result preview.
func (s *Store) ClearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = nil
}

// Preview returns a copy of the collected preview rows.
func (s *Store) Preview() []workflow.DataRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]workflow.DataRow, len(s.preview))
	for i, r := range s.preview {
		out[i] = workflow.DataRow(cloneMap(r))
	}
	return out
}
