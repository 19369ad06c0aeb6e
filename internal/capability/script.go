package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// ScriptEntryPoint is the function every script must define. It is called
// with the variable snapshot as its only argument.
const ScriptEntryPoint = "main"

// DefaultScriptTimeout bounds one evaluation.
const DefaultScriptTimeout = 30 * time.Second

// ScriptExecutor evaluates JavaScript in a fresh runtime per request. The
// only data a script sees is the vars global handed to main.
type ScriptExecutor struct {
	timeout time.Duration
	console bool
	logger  *slog.Logger
}

// ScriptOption configures a ScriptExecutor.
type ScriptOption func(*ScriptExecutor)

// WithScriptTimeout overrides DefaultScriptTimeout.
func WithScriptTimeout(d time.Duration) ScriptOption {
	return func(e *ScriptExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithScriptConsole exposes a console object whose log, warn and error
// methods write to the executor's logger.
func WithScriptConsole(enabled bool) ScriptOption {
	return func(e *ScriptExecutor) { e.console = enabled }
}

// WithScriptLogger sets the logger receiving script output.
func WithScriptLogger(l *slog.Logger) ScriptOption {
	return func(e *ScriptExecutor) { e.logger = l }
}

// NewScriptExecutor creates an executor with the default sandbox.
func NewScriptExecutor(opts ...ScriptOption) *ScriptExecutor {
	e := &ScriptExecutor{
		timeout: DefaultScriptTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("capability", "script")
	return e
}

// Run evaluates code, which must define main(vars), and returns what main
// returns. Syntax errors, thrown exceptions and timeouts are returned as
// errors. The result is normalized to JSON-compatible values.
func (e *ScriptExecutor) Run(ctx context.Context, code string, vars map[string]any) (result any, err error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("script is empty")
	}
	prg, err := goja.Compile("script.js", code, false)
	if err != nil {
		return nil, fmt.Errorf("script compile error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("script panicked: %v", r)
		}
	}()

	if vars == nil {
		vars = map[string]any{}
	}
	if err := vm.Set("vars", vars); err != nil {
		return nil, fmt.Errorf("script setup error: %w", err)
	}
	if e.console {
		if err := vm.Set("console", e.consoleObject(vm)); err != nil {
			return nil, fmt.Errorf("script setup error: %w", err)
		}
	}

	if _, err := vm.RunProgram(prg); err != nil {
		return nil, scriptError("load", err)
	}
	entry, ok := goja.AssertFunction(vm.Get(ScriptEntryPoint))
	if !ok {
		return nil, fmt.Errorf("script must define function %s(vars)", ScriptEntryPoint)
	}
	v, err := entry(goja.Undefined(), vm.Get("vars"))
	if err != nil {
		return nil, scriptError("run", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return normalize(v.Export()), nil
}

func (e *ScriptExecutor) consoleObject(vm *goja.Runtime) *goja.Object {
	console := vm.NewObject()
	write := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			e.logger.Log(context.Background(), level, "Script output.", "output", strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", write(slog.LevelDebug))
	_ = console.Set("warn", write(slog.LevelWarn))
	_ = console.Set("error", write(slog.LevelError))
	return console
}

// normalize converts a script result into plain JSON values so it can be sent
// over the wire. Values that do not encode are rendered with fmt.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := sonic.Unmarshal(b, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}

func scriptError(phase string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("script timed out during %s", phase)
		}
		return fmt.Errorf("script cancelled during %s", phase)
	}
	var exc *goja.Exception
	if errors.As(err, &exc) && exc.Value() != nil {
		return fmt.Errorf("script %s error: %s", phase, exc.Value().String())
	}
	return fmt.Errorf("script %s error: %w", phase, err)
}
