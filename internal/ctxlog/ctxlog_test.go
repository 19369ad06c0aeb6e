package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	// --- Act ---
	scoped, logger := With(ctx, "request_id", "r1")
	FromContext(scoped).Info("scoped")
	FromContext(ctx).Info("outer")

	// --- Assert ---
	assert.Same(t, logger, FromContext(scoped))
	assert.Contains(t, buf.String(), "msg=scoped request_id=r1")
	assert.NotContains(t, buf.String(), "msg=outer request_id")
}
