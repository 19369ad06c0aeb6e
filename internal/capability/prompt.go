package capability

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Input modes.
const (
	ModeSingle    = "single"
	ModeMultiline = "multiline"
	ModeList      = "list"
	ModeNumber    = "number"
	ModeInteger   = "integer"
	ModePassword  = "password"
)

// Prompt describes a question for the user.
type Prompt struct {
	Variable  string
	Title     string
	Message   string
	Default   string
	Mode      string
	Min       *float64
	Max       *float64
	MaxLength int
	Required  bool
}

// IsNumeric reports whether the answer must parse as a number.
func (p Prompt) IsNumeric() bool {
	return p.Mode == ModeNumber || p.Mode == ModeInteger
}

// IsMultiline reports whether the answer may span lines.
func (p Prompt) IsMultiline() bool {
	return p.Mode == ModeList || p.Mode == ModeMultiline
}

// Prompter asks the user a question. ok is false when the user cancelled.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (value string, ok bool, err error)
}

// ValidateInput checks value against the prompt's constraints and returns a
// user-facing message describing the first violation.
func ValidateInput(p Prompt, value string) error {
	trimmed := strings.TrimSpace(value)
	if p.Required && trimmed == "" {
		return fmt.Errorf("this field is required")
	}

	if p.IsNumeric() {
		if trimmed == "" {
			return nil
		}
		num, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(num) {
			if p.Mode == ModeInteger {
				return fmt.Errorf("enter a valid integer")
			}
			return fmt.Errorf("enter a valid number")
		}
		if p.Mode == ModeInteger && num != math.Trunc(num) {
			return fmt.Errorf("enter a whole number without decimals")
		}
		if p.Min != nil && num < *p.Min {
			return fmt.Errorf("value must not be less than %s", formatFloat(*p.Min))
		}
		if p.Max != nil && num > *p.Max {
			return fmt.Errorf("value must not be greater than %s", formatFloat(*p.Max))
		}
		return nil
	}

	if p.MaxLength > 0 && utf8.RuneCountInString(trimmed) > p.MaxLength {
		return fmt.Errorf("length must not exceed %d characters", p.MaxLength)
	}
	return nil
}

// NormalizeInput returns the value sent back to the engine. Numeric answers
// are trimmed; everything else is passed through unchanged.
func NormalizeInput(p Prompt, value string) string {
	if p.IsNumeric() {
		return strings.TrimSpace(value)
	}
	return value
}

// InputExecutor services input prompts one at a time.
type InputExecutor struct {
	prompter Prompter
	mu       sync.Mutex
}

// NewInputExecutor creates an executor asking through prompter.
func NewInputExecutor(prompter Prompter) *InputExecutor {
	return &InputExecutor{prompter: prompter}
}

// Ask shows p and returns the validated answer. A cancelled prompt, or an
// answer the prompter let through that fails validation, returns ok false.
func (e *InputExecutor) Ask(ctx context.Context, p Prompt) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok, err := e.prompter.Ask(ctx, p)
	if err != nil || !ok {
		return "", false, err
	}
	if err := ValidateInput(p, value); err != nil {
		return "", false, fmt.Errorf("invalid answer: %w", err)
	}
	return NormalizeInput(p, value), true, nil
}
