package workflow

// ExecutionStatus is the lifecycle state of the current run as seen locally.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusStopped   ExecutionStatus = "stopped"
)

// IsTerminal reports whether no further telemetry is expected for the run.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// LogLevel is the severity of a user-visible execution log line.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
	LevelSuccess LogLevel = "success"
)

// LogEntry is one line of the execution log shown to the user.
type LogEntry struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	Level       LogLevel `json:"level"`
	NodeID      string   `json:"nodeId,omitempty"`
	Message     string   `json:"message"`
	Duration    *float64 `json:"duration,omitempty"`
	IsUserLog   bool     `json:"isUserLog,omitempty"`
	IsSystemLog bool     `json:"isSystemLog,omitempty"`
}

// DataRow is one collected result record.
type DataRow map[string]any
