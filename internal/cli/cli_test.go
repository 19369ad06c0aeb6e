package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/app"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantCode int
	}{
		{
			name: "positional workflow with defaults",
			args: []string{"flows/login.json"},
			want: &app.Config{
				WorkflowPath: "flows/login.json",
				EnvFiles:     []string{".env"},
				LogFormat:    "text",
				LogLevel:     "info",
			},
		},
		{
			name: "workflow flag wins over positional",
			args: []string{"--workflow", "a.json", "-log-level", "DEBUG", "b.json"},
			want: &app.Config{
				WorkflowPath: "a.json",
				EnvFiles:     []string{".env"},
				LogFormat:    "text",
				LogLevel:     "debug",
			},
		},
		{
			name: "execute by id",
			args: []string{
				"--config", "flowbridge.hcl", "--workflow-id", "wf-1", "--execute", "--headless",
				"--engine-url", "http://localhost:8000", "--api-url", "http://localhost:8000/api",
				"--verbose", "--env-file", "", "--log-format", "json", "--healthcheck-port", "8080",
			},
			want: &app.Config{
				ConfigPath:      "flowbridge.hcl",
				WorkflowID:      "wf-1",
				Execute:         true,
				Headless:        true,
				EngineURL:       "http://localhost:8000",
				APIURL:          "http://localhost:8000/api",
				Verbose:         true,
				LogFormat:       "json",
				LogLevel:        "info",
				HealthcheckPort: 8080,
			},
		},
		{name: "no target prints usage", args: nil, wantExit: true},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "unknown flag", args: []string{"--nope"}, wantCode: 2},
		{name: "bad log format", args: []string{"--log-format", "xml", "wf.json"}, wantCode: 2},
		{name: "bad log level", args: []string{"--log-level", "trace", "wf.json"}, wantCode: 2},
		{name: "execute without workflow", args: []string{"--config", "c.yaml", "--execute"}, wantCode: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := &bytes.Buffer{}

			cfg, exit, err := Parse(tc.args, out)

			if tc.wantCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tc.want, cfg)
		})
	}
}
