package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/flowbridge/internal/workflow"
)

// Duration is a Go duration string such as "1s" or "2m30s".
type Duration string

// Or returns the parsed duration, or def when d is empty or invalid.
func (d Duration) Or(def time.Duration) time.Duration {
	if d == "" {
		return def
	}
	v, err := time.ParseDuration(string(d))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (d Duration) validate(field string) error {
	if d == "" {
		return nil
	}
	v, err := time.ParseDuration(string(d))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s: must be positive", field)
	}
	return nil
}

// Settings is the complete client configuration.
type Settings struct {
	Engine   EngineSettings            `yaml:"engine"`
	Speech   CommandSettings           `yaml:"speech"`
	Audio    CommandSettings           `yaml:"audio"`
	Script   ScriptSettings            `yaml:"script"`
	Prompt   PromptSettings            `yaml:"prompt"`
	Drafts   DraftSettings             `yaml:"drafts"`
	Defaults map[string]map[string]any `yaml:"defaults"`
}

// EngineSettings locates the execution engine and its workflow API.
type EngineSettings struct {
	URL                  string   `hcl:"url,optional" yaml:"url"`
	Namespace            string   `hcl:"namespace,optional" yaml:"namespace"`
	APIURL               string   `hcl:"api_url,optional" yaml:"api_url"`
	WorkflowID           string   `hcl:"workflow_id,optional" yaml:"workflow_id"`
	InsecureSkipVerify   bool     `hcl:"insecure_skip_verify,optional" yaml:"insecure_skip_verify"`
	ReconnectionAttempts int      `hcl:"reconnection_attempts,optional" yaml:"reconnection_attempts"`
	ReconnectionDelay    Duration `hcl:"reconnection_delay,optional" yaml:"reconnection_delay"`
	ConnectTimeout       Duration `hcl:"connect_timeout,optional" yaml:"connect_timeout"`
}

// CommandSettings configures a capability backed by an external command.
// Command elements may use {placeholders}.
type CommandSettings struct {
	Command []string `hcl:"command,optional" yaml:"command"`
	Timeout Duration `hcl:"timeout,optional" yaml:"timeout"`
}

// ScriptSettings configures the script sandbox. Console exposes a console
// object that writes to the log.
type ScriptSettings struct {
	Console bool     `hcl:"console,optional" yaml:"console"`
	Timeout Duration `hcl:"timeout,optional" yaml:"timeout"`
}

// PromptSettings configures interactive prompts.
type PromptSettings struct {
	Timeout Duration `hcl:"timeout,optional" yaml:"timeout"`
}

// Draft storage backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DraftSettings configures autosaving of the workflow being edited.
type DraftSettings struct {
	Backend       string   `hcl:"backend,optional" yaml:"backend"`
	RedisAddr     string   `hcl:"redis_addr,optional" yaml:"redis_addr"`
	RedisPassword string   `hcl:"redis_password,optional" yaml:"redis_password"`
	RedisDB       int      `hcl:"redis_db,optional" yaml:"redis_db"`
	KeyPrefix     string   `hcl:"key_prefix,optional" yaml:"key_prefix"`
	Interval      Duration `hcl:"interval,optional" yaml:"interval"`
	TTL           Duration `hcl:"ttl,optional" yaml:"ttl"`
}

// BackendName returns the configured backend, defaulting to memory.
func (d DraftSettings) BackendName() string {
	if d.Backend == "" {
		return BackendMemory
	}
	return d.Backend
}

// Validate checks the settings for values that cannot be used.
func (s *Settings) Validate() error {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if s.Engine.ReconnectionAttempts < 0 {
		add(errors.New("engine.reconnection_attempts: must not be negative"))
	}
	add(s.Engine.ReconnectionDelay.validate("engine.reconnection_delay"))
	add(s.Engine.ConnectTimeout.validate("engine.connect_timeout"))
	add(s.Speech.Timeout.validate("speech.timeout"))
	add(s.Audio.Timeout.validate("audio.timeout"))
	add(s.Script.Timeout.validate("script.timeout"))
	add(s.Prompt.Timeout.validate("prompt.timeout"))
	add(s.Drafts.Interval.validate("drafts.interval"))
	add(s.Drafts.TTL.validate("drafts.ttl"))

	switch s.Drafts.BackendName() {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if s.Drafts.RedisAddr == "" {
			add(errors.New("drafts.redis_addr: required for the redis backend"))
		}
	default:
		add(fmt.Errorf("drafts.backend: unknown backend %q", s.Drafts.Backend))
	}

	for kind := range s.Defaults {
		if _, err := workflow.ParseKind(kind); err != nil {
			add(fmt.Errorf("defaults: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// KindDefaults returns the per-kind node data defaults.
func (s *Settings) KindDefaults() map[workflow.Kind]map[string]any {
	out := make(map[workflow.Kind]map[string]any, len(s.Defaults))
	for kind, data := range s.Defaults {
		out[workflow.Kind(kind)] = data
	}
	return out
}
