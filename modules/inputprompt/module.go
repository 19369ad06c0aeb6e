package inputprompt

import (
	"context"
	"os"
	"time"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/prompt"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// DefaultTimeout matches how long the engine waits for an answer.
const DefaultTimeout = 300 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	Executor *capability.InputExecutor
	Timeout  time.Duration
}

// ToPrompt translates a wire request into a prompt.
func ToPrompt(r *protocol.InputPromptRequest) capability.Prompt {
	mode := r.InputMode
	if mode == "" {
		mode = capability.ModeSingle
	}
	return capability.Prompt{
		Variable:  r.VariableName,
		Title:     r.Title,
		Message:   r.Message,
		Default:   r.DefaultValue,
		Mode:      mode,
		Min:       r.MinValue,
		Max:       r.MaxValue,
		MaxLength: r.MaxLength,
		Required:  r.IsRequired(),
	}
}

// OnInputPrompt asks the user and returns the answer. Cancelling, or any
// prompter failure, answers with a null value.
func (m *Module) OnInputPrompt(ctx context.Context, req registry.Request) any {
	r := req.(*protocol.InputPromptRequest)
	logger := ctxlog.FromContext(ctx).With("module", "inputprompt", "variable", r.VariableName)

	value, ok, err := m.Executor.Ask(ctx, ToPrompt(r))
	if err != nil {
		logger.Warn("Prompt failed.", "error", err)
		return Failure(r.RequestID, err.Error())
	}
	if !ok {
		logger.Info("Prompt cancelled by user.")
		return Failure(r.RequestID, "cancelled")
	}
	return &protocol.InputPromptResult{RequestID: r.RequestID, Value: &value}
}

// Failure builds an input_prompt_result with a null value. The protocol has
// no error field, so reason is dropped.
func Failure(requestID, _ string) any {
	return &protocol.InputPromptResult{RequestID: requestID}
}

// Register registers the handler with the engine. Without an executor the
// prompt is drawn on the process terminal.
func (m *Module) Register(r *registry.Registry) {
	if m.Executor == nil {
		m.Executor = capability.NewInputExecutor(prompt.NewTerminal(os.Stdin, os.Stdout))
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r.RegisterCapability(protocol.EventInputPrompt, &registry.RegisteredCapability{
		ResultEvent: protocol.EventInputPromptResult,
		Timeout:     timeout,
		NewRequest:  func() registry.Request { return new(protocol.InputPromptRequest) },
		Fn:          m.OnInputPrompt,
		Failure:     Failure,
	})
}
