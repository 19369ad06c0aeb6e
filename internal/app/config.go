package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
// Non-empty fields override the settings file and the environment.
type Config struct {
	ConfigPath   string   // settings file, .hcl or .yaml
	WorkflowPath string   // workflow document loaded at startup
	EnvFiles     []string // dotenv files, missing ones are skipped

	EngineURL  string
	APIURL     string
	WorkflowID string
	Execute    bool
	Headless   bool
	Verbose    bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort %d is out of range", cfg.HealthcheckPort)
	}
	if cfg.Execute && cfg.WorkflowPath == "" && cfg.WorkflowID == "" {
		return nil, errors.New("Execute requires a workflow file or a workflow id")
	}
	if cfg.Headless && !cfg.Execute {
		return nil, errors.New("Headless only applies together with Execute")
	}
	return &cfg, nil
}
