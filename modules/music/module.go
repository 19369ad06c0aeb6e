package music

import (
	"context"
	"time"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// DefaultTimeout matches how long the engine waits for an awaited track.
const DefaultTimeout = 600 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	Executor *capability.AudioExecutor
	Timeout  time.Duration
}

// OnPlayMusic starts playback and, when asked to, waits for it to end.
func (m *Module) OnPlayMusic(ctx context.Context, req registry.Request) any {
	r := req.(*protocol.MusicRequest)
	logger := ctxlog.FromContext(ctx).With("module", "music", "url", r.AudioURL)

	if err := m.Executor.Play(ctx, r.AudioURL, r.WaitForEnd); err != nil {
		logger.Warn("Playback failed.", "error", err)
		return Failure(r.RequestID, err.Error())
	}
	logger.Debug("Playback request served.", "wait_for_end", r.WaitForEnd)
	return &protocol.MusicResult{RequestID: r.RequestID, Success: true}
}

// Failure builds a failed play_music_result.
func Failure(requestID, reason string) any {
	return &protocol.MusicResult{RequestID: requestID, Error: reason}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	if m.Executor == nil {
		m.Executor = capability.NewAudioExecutor(capability.NewCommandPlayer(nil), nil)
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r.RegisterCapability(protocol.EventPlayMusic, &registry.RegisteredCapability{
		ResultEvent: protocol.EventPlayMusicResult,
		Timeout:     timeout,
		NewRequest:  func() registry.Request { return new(protocol.MusicRequest) },
		Fn:          m.OnPlayMusic,
		Failure:     Failure,
	})
	r.RegisterStopper("audio", m.Executor.Stop)
}
