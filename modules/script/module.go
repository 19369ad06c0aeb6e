package script

import (
	"context"
	"time"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	Executor *capability.ScriptExecutor
	Timeout  time.Duration
}

// OnJSScript evaluates the script against the variable snapshot sent with
// the request.
func (m *Module) OnJSScript(ctx context.Context, req registry.Request) any {
	r := req.(*protocol.ScriptRequest)
	logger := ctxlog.FromContext(ctx).With("module", "script")

	value, err := m.Executor.Run(ctx, r.Code, r.Variables)
	if err != nil {
		logger.Warn("Script failed.", "error", err)
		return Failure(r.RequestID, err.Error())
	}
	logger.Debug("Script finished.")
	return &protocol.ScriptResult{RequestID: r.RequestID, Success: true, Result: value}
}

// Failure builds a failed js_script_result.
func Failure(requestID, reason string) any {
	return &protocol.ScriptResult{RequestID: requestID, Error: reason}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	if m.Executor == nil {
		m.Executor = capability.NewScriptExecutor()
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = capability.DefaultScriptTimeout
	}
	r.RegisterCapability(protocol.EventJSScript, &registry.RegisteredCapability{
		ResultEvent: protocol.EventJSScriptResult,
		Timeout:     timeout,
		NewRequest:  func() registry.Request { return new(protocol.ScriptRequest) },
		Fn:          m.OnJSScript,
		Failure:     Failure,
	})
}
