package capability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandTemplate is an argv whose elements may contain {name} placeholders.
type CommandTemplate []string

// Expand substitutes vars into every argument. Unknown placeholders are left
// as they are.
func (t CommandTemplate) Expand(vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(t))
	for i, arg := range t {
		out[i] = r.Replace(arg)
	}
	return out
}

func (t CommandTemplate) command(ctx context.Context, vars map[string]string) (*exec.Cmd, *bytes.Buffer, error) {
	if len(t) == 0 {
		return nil, nil, errors.New("no command configured")
	}
	argv := t.Expand(vars)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	return cmd, &stderr, nil
}

func commandError(argv0 string, err error, stderr *bytes.Buffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return fmt.Errorf("%s: %w", argv0, err)
	}
	return fmt.Errorf("%s: %w: %s", argv0, err, msg)
}
