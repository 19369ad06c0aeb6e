package bridge

import (
	"context"
	"fmt"

	"github.com/vk/flowbridge/internal/ctxlog"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

// onCapability registers the request as pending and services it on its own
// goroutine. Exactly one result is emitted: the handler's, or a failure
// when the deadline passes first. The handler's context is cancelled as soon
// as the request resolves either way.
func (b *Bridge) onCapability(ctx context.Context, event string, c *registry.RegisteredCapability, args []any) {
	req := c.NewRequest()
	if err := protocol.Decode(args, req); err != nil {
		b.logger.Warn("Dropping malformed capability request.", "event", event, "error", err)
		return
	}
	id := req.ID()
	if id == "" {
		b.logger.Warn("Dropping capability request without an id.", "event", event)
		return
	}
	hctx, cancel := context.WithCancel(ctx)
	hctx, logger := ctxlog.With(hctx, "event", event, "request_id", id)

	expire := func() {
		if b.pending.resolve(id) {
			logger.Warn("Capability request timed out.", "timeout", c.Timeout)
			b.emit(c.ResultEvent, c.Failure(id, fmt.Sprintf("timed out after %s", c.Timeout)))
		}
	}
	if !b.pending.add(id, c.Timeout, cancel, expire) {
		cancel()
		logger.Debug("Ignoring duplicate capability request.")
		return
	}
	logger.Debug("Capability request accepted.")

	b.handlers.Add(1)
	go func() {
		defer b.handlers.Done()
		defer cancel()
		result := b.serve(hctx, c, req)
		if !b.pending.resolve(id) {
			logger.Debug("Discarding late capability result.")
			return
		}
		b.emit(c.ResultEvent, result)
	}()
}

// serve runs the handler, turning a panic into a failure result.
func (b *Bridge) serve(ctx context.Context, c *registry.RegisteredCapability, req registry.Request) (result any) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Capability handler panicked.", "panic", r)
			result = c.Failure(req.ID(), fmt.Sprintf("handler panicked: %v", r))
		}
	}()
	return c.Fn(ctx, req)
}
