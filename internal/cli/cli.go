package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/flowbridge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowbridge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Flowbridge - a workflow client and live bridge to an automation engine.

Usage:
  flowbridge [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow document (.json) loaded at startup.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to a settings file (.hcl, .yaml or .yml).")
	workflowFlag := flagSet.String("workflow", "", "Path to a workflow document loaded at startup.")
	wFlag := flagSet.String("w", "", "Path to a workflow document (shorthand).")
	envFileFlag := flagSet.String("env-file", ".env", "Path to a dotenv file. Missing files are ignored.")
	engineURLFlag := flagSet.String("engine-url", "", "Socket.IO URL of the execution engine.")
	apiURLFlag := flagSet.String("api-url", "", "Base URL of the engine's workflow API.")
	workflowIDFlag := flagSet.String("workflow-id", "", "Engine workflow id the client is scoped to.")
	executeFlag := flagSet.Bool("execute", false, "Start the workflow and exit when the run ends.")
	headlessFlag := flagSet.Bool("headless", false, "Ask the engine to run the browser headless. Requires --execute.")
	verboseFlag := flagSet.Bool("verbose", false, "Show every engine log line, not only errors and user output.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	if path == "" && *configFlag == "" && *engineURLFlag == "" && *workflowIDFlag == "" {
		slog.Debug("Nothing to connect to, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	var envFiles []string
	if *envFileFlag != "" {
		envFiles = []string{*envFileFlag}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:      *configFlag,
		WorkflowPath:    path,
		EnvFiles:        envFiles,
		EngineURL:       *engineURLFlag,
		APIURL:          *apiURLFlag,
		WorkflowID:      *workflowIDFlag,
		Execute:         *executeFlag,
		Headless:        *headlessFlag,
		Verbose:         *verboseFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
