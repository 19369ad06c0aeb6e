package speech

import (
	"context"
	"time"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// DefaultTimeout matches how long the engine waits for a spoken result.
const DefaultTimeout = 60 * time.Second

// DefaultVolume is used when a request carries no volume.
const DefaultVolume = 1.0

// Module implements the registry.Module interface for this package.
type Module struct {
	Executor *capability.SpeechExecutor
	Timeout  time.Duration
}

// OnTTSRequest speaks the requested text and reports the outcome.
func (m *Module) OnTTSRequest(ctx context.Context, req registry.Request) any {
	r := req.(*protocol.TTSRequest)
	logger := ctxlog.FromContext(ctx).With("module", "speech")

	volume := DefaultVolume
	if r.Volume != nil {
		volume = *r.Volume
	}
	err := m.Executor.Speak(ctx, capability.Utterance{
		Text:   r.Text,
		Lang:   r.Lang,
		Rate:   r.Rate,
		Pitch:  r.Pitch,
		Volume: volume,
	})
	if err != nil {
		logger.Warn("Speech failed.", "error", err)
		return Failure(r.RequestID, err.Error())
	}
	logger.Debug("Speech finished.")
	return &protocol.TTSResult{RequestID: r.RequestID, Success: true}
}

// Failure builds a failed tts_result.
func Failure(requestID, reason string) any {
	return &protocol.TTSResult{RequestID: requestID, Error: reason}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	if m.Executor == nil {
		m.Executor = capability.NewSpeechExecutor(capability.NewCommandSynthesizer(nil), nil)
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r.RegisterCapability(protocol.EventTTSRequest, &registry.RegisteredCapability{
		ResultEvent: protocol.EventTTSResult,
		Timeout:     timeout,
		NewRequest:  func() registry.Request { return new(protocol.TTSRequest) },
		Fn:          m.OnTTSRequest,
		Failure:     Failure,
	})
	r.RegisterStopper("speech", m.Executor.Stop)
}
