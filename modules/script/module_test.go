package script

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/protocol"
	"github.com/vk/flowbridge/internal/registry"
)

func TestModule_OnJSScript(t *testing.T) {
	// --- Arrange ---
	m := &Module{Timeout: 5 * time.Second}
	r := registry.New()
	m.Register(r)
	c, ok := r.Capability(protocol.EventJSScript)
	require.True(t, ok)

	// --- Act ---
	res := c.Fn(context.Background(), &protocol.ScriptRequest{
		RequestID: "s1",
		Code:      "function main(vars) {\n  return vars.n + 1;\n}",
		Variables: map[string]any{"n": 1.0},
	})
	failed := c.Fn(context.Background(), &protocol.ScriptRequest{RequestID: "s2", Code: "function main(vars) {"})

	// --- Assert ---
	assert.Equal(t, &protocol.ScriptResult{RequestID: "s1", Success: true, Result: 2.0}, res)
	f := failed.(*protocol.ScriptResult)
	assert.False(t, f.Success)
	assert.Contains(t, f.Error, "compile")
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestModule_DefaultTimeout(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	c, _ := r.Capability(protocol.EventJSScript)
	assert.Equal(t, capability.DefaultScriptTimeout, c.Timeout)
}
