package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/workflow"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoadHCL(t *testing.T) {
	// --- Arrange ---
	path := writeFile(t, "flowbridge.hcl", `
engine {
  url                   = "http://localhost:3001"
  api_url               = "http://localhost:3001/api"
  reconnection_attempts = 5
  reconnection_delay    = "2s"
}

speech {
  command = ["say", "{text}"]
}

drafts {
  backend    = "redis"
  redis_addr = "localhost:6379"
  ttl        = "24h"
}

defaults "ai_chat" {
  model       = "gpt-4o-mini"
  temperature = 0.2
  tools       = ["search"]
}
`)

	// --- Act ---
	s, err := LoadHCL(path)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, "http://localhost:3001", s.Engine.URL)
	assert.Equal(t, 5, s.Engine.ReconnectionAttempts)
	assert.Equal(t, 2*time.Second, s.Engine.ReconnectionDelay.Or(time.Second))
	assert.Equal(t, time.Minute, s.Engine.ConnectTimeout.Or(time.Minute), "unset durations fall back")
	assert.Equal(t, []string{"say", "{text}"}, s.Speech.Command)
	assert.Equal(t, BackendRedis, s.Drafts.BackendName())

	want := map[string]any{"model": "gpt-4o-mini", "temperature": 0.2, "tools": []any{"search"}}
	if diff := cmp.Diff(want, s.Defaults["ai_chat"]); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, s.KindDefaults(), workflow.KindAIChat)
}

func TestLoadHCL_Errors(t *testing.T) {
	_, err := LoadHCL(writeFile(t, "bad.hcl", `engine {`))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = LoadHCL(writeFile(t, "unknown.hcl", `mystery {}`))
	assert.ErrorContains(t, err, "failed to decode")
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "flowbridge.yaml", `
engine:
  url: http://engine:3001
  workflow_id: wf-1
script:
  timeout: 5s
  console: true
defaults:
  send_email:
    from: bot@example.com
`)

	s, err := LoadYAML(path)

	require.NoError(t, err)
	assert.Equal(t, "wf-1", s.Engine.WorkflowID)
	assert.Equal(t, 5*time.Second, s.Script.Timeout.Or(time.Minute))
	assert.True(t, s.Script.Console)
	assert.Equal(t, "bot@example.com", s.Defaults["send_email"]["from"])
	assert.Equal(t, BackendMemory, s.Drafts.BackendName())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// --- Arrange ---
	path := writeFile(t, "flowbridge.yml", "engine:\n  url: http://file:1\n")
	t.Setenv("FLOWBRIDGE_ENGINE_URL", "http://env:2")
	t.Setenv("FLOWBRIDGE_REDIS_DB", "3")

	// --- Act ---
	s, err := Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "http://env:2", s.Engine.URL)
	assert.Equal(t, 3, s.Drafts.RedisDB)
}

func TestLoad_Rejects(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, writeFile(t, "settings.toml", ""))
	assert.ErrorContains(t, err, "unsupported settings file")

	_, err = Load(ctx, writeFile(t, "settings.yaml", "drafts:\n  backend: redis\n"))
	assert.ErrorContains(t, err, "redis_addr")

	s, err := Load(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestApplyEnv_InvalidNumbers(t *testing.T) {
	s := &Settings{}
	err := s.ApplyEnv(func(k string) (string, bool) {
		if k == "FLOWBRIDGE_REDIS_DB" {
			return "two", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "REDIS_DB")
	assert.NoError(t, (&Settings{}).ApplyEnv(noEnv))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		settings Settings
		wantErr  string
	}{
		{name: "empty is valid", settings: Settings{}},
		{name: "bad duration", settings: Settings{Engine: EngineSettings{ConnectTimeout: "soon"}}, wantErr: "engine.connect_timeout"},
		{name: "negative duration", settings: Settings{Script: ScriptSettings{Timeout: "-1s"}}, wantErr: "must be positive"},
		{name: "negative attempts", settings: Settings{Engine: EngineSettings{ReconnectionAttempts: -1}}, wantErr: "reconnection_attempts"},
		{name: "unknown backend", settings: Settings{Drafts: DraftSettings{Backend: "s3"}}, wantErr: "unknown backend"},
		{name: "unknown kind", settings: Settings{Defaults: map[string]map[string]any{"teleport": {}}}, wantErr: "defaults"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "FLOWBRIDGE_TEST_DOTENV=loaded\n")
	t.Setenv("FLOWBRIDGE_TEST_DOTENV", "")
	os.Unsetenv("FLOWBRIDGE_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(context.Background(), filepath.Join(t.TempDir(), "missing.env"), path))

	assert.Equal(t, "loaded", os.Getenv("FLOWBRIDGE_TEST_DOTENV"))
}
