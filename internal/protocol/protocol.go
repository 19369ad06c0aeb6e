// Package protocol defines the event names and payloads exchanged with the
// execution engine over the socket connection.
package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/vk/flowbridge/internal/workflow"
)

// Inbound events.
const (
	EventConnect        = "connect"
	EventDisconnect     = "disconnect"
	EventStarted        = "execution:started"
	EventNodeStart      = "execution:node_start"
	EventNodeComplete   = "execution:node_complete"
	EventLog            = "execution:log"
	EventVariableUpdate = "execution:variable_update"
	EventInputPrompt    = "execution:input_prompt"
	EventTTSRequest     = "execution:tts_request"
	EventJSScript       = "execution:js_script"
	EventPlayMusic      = "execution:play_music"
	EventDataRow        = "execution:data_row"
	EventCompleted      = "execution:completed"
	EventStopped        = "execution:stopped"
)

// Outbound events.
const (
	EventInputPromptResult = "input_prompt_result"
	EventTTSResult         = "tts_result"
	EventJSScriptResult    = "js_script_result"
	EventPlayMusicResult   = "play_music_result"
	EventStopExecution     = "execution_stop"
	EventSetVerboseLog     = "set_verbose_log"
)

// Scoped is implemented by payloads that name the workflow they belong to.
type Scoped interface {
	Workflow() string
}

// Started is the payload of execution:started.
type Started struct {
	WorkflowID string `json:"workflowId"`
}

func (p Started) Workflow() string { return p.WorkflowID }

// NodeEvent is the payload of execution:node_start and node_complete.
type NodeEvent struct {
	WorkflowID string  `json:"workflowId"`
	NodeID     string  `json:"nodeId"`
	Success    *bool   `json:"success,omitempty"`
	Message    string  `json:"message,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

func (p NodeEvent) Workflow() string { return p.WorkflowID }

// Log is the payload of execution:log.
type Log struct {
	WorkflowID string            `json:"workflowId"`
	Log        workflow.LogEntry `json:"log"`
}

func (p Log) Workflow() string { return p.WorkflowID }

// VariableUpdate is the payload of execution:variable_update.
type VariableUpdate struct {
	WorkflowID string `json:"workflowId"`
	Name       string `json:"name"`
	Value      any    `json:"value"`
}

func (p VariableUpdate) Workflow() string { return p.WorkflowID }

// DataRow is the payload of execution:data_row.
type DataRow struct {
	WorkflowID string           `json:"workflowId"`
	Row        workflow.DataRow `json:"row"`
}

func (p DataRow) Workflow() string { return p.WorkflowID }

// Result summarizes a finished run.
type Result struct {
	Status        workflow.ExecutionStatus `json:"status"`
	ExecutedNodes int                      `json:"executedNodes"`
	FailedNodes   int                      `json:"failedNodes"`
	DataFile      string                   `json:"dataFile,omitempty"`
}

// Completed is the payload of execution:completed.
type Completed struct {
	WorkflowID string `json:"workflowId"`
	Result     Result `json:"result"`
}

func (p Completed) Workflow() string { return p.WorkflowID }

// Stopped is the payload of execution:stopped.
type Stopped struct {
	WorkflowID string `json:"workflowId"`
}

func (p Stopped) Workflow() string { return p.WorkflowID }

// StopExecution is the payload of execution_stop.
type StopExecution struct {
	WorkflowID string `json:"workflowId"`
}

// SetVerboseLog is the payload of set_verbose_log.
type SetVerboseLog struct {
	Enabled bool `json:"enabled"`
}

// Decode converts the first argument of a socket event into dst. Listener
// arguments arrive as generic maps, so they are re-encoded and decoded into
// the typed payload.
func Decode(args []any, dst any) error {
	if len(args) == 0 || args[0] == nil {
		return fmt.Errorf("event carries no payload")
	}
	var raw []byte
	switch v := args[0].(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := sonic.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to re-encode payload: %w", err)
		}
		raw = b
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
