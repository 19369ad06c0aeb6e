// Package prompt asks the user for input prompt values in the terminal.
package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vk/flowbridge/internal/capability"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Terminal is a capability.Prompter rendering a bubbletea form.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a prompter reading keys from in and drawing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Ask implements capability.Prompter.
func (t *Terminal) Ask(ctx context.Context, p capability.Prompt) (string, bool, error) {
	prog := tea.NewProgram(newModel(p),
		tea.WithContext(ctx),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
	)
	final, err := prog.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", false, ctxErr
	}
	if err != nil {
		return "", false, fmt.Errorf("prompt failed: %w", err)
	}
	m := final.(model)
	if !m.submitted {
		return "", false, nil
	}
	return m.value(), true, nil
}

// model is the bubbletea form for one prompt. Single line modes use a
// textinput, list and multiline modes a textarea.
type model struct {
	prompt    capability.Prompt
	input     textinput.Model
	area      textarea.Model
	err       string
	submitted bool
	cancelled bool
}

func newModel(p capability.Prompt) model {
	m := model{prompt: p}
	if p.IsMultiline() {
		m.area = textarea.New()
		m.area.ShowLineNumbers = false
		if p.MaxLength > 0 {
			m.area.CharLimit = p.MaxLength
		}
		m.area.SetValue(p.Default)
		m.area.Focus()
		return m
	}

	m.input = textinput.New()
	m.input.Placeholder = p.Variable
	if p.Mode == capability.ModePassword {
		m.input.EchoMode = textinput.EchoPassword
	}
	if p.MaxLength > 0 && !p.IsNumeric() {
		m.input.CharLimit = p.MaxLength
	}
	m.input.SetValue(p.Default)
	m.input.Focus()
	return m
}

func (m model) value() string {
	if m.prompt.IsMultiline() {
		return m.area.Value()
	}
	return m.input.Value()
}

func (m model) Init() tea.Cmd {
	if m.prompt.IsMultiline() {
		return textarea.Blink
	}
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "ctrl+d", "ctrl+s":
			return m.submit()
		case "enter":
			if !m.prompt.IsMultiline() {
				return m.submit()
			}
		}
		m.err = ""
	}

	var cmd tea.Cmd
	if m.prompt.IsMultiline() {
		m.area, cmd = m.area.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	if err := capability.ValidateInput(m.prompt, m.value()); err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.submitted = true
	return m, tea.Quit
}

func (m model) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	title := m.prompt.Title
	if title == "" {
		title = "Input required"
	}

	lines := []string{titleStyle.Render(title)}
	if m.prompt.Message != "" {
		lines = append(lines, bodyStyle.Render(m.prompt.Message))
	}
	if m.prompt.IsMultiline() {
		lines = append(lines, m.area.View())
	} else {
		lines = append(lines, m.input.View())
	}
	if m.err != "" {
		lines = append(lines, errorStyle.Render(m.err))
	}

	hint := "enter submit • esc cancel"
	if m.prompt.IsMultiline() {
		hint = "ctrl+d submit • esc cancel"
	}
	if m.prompt.Mode == capability.ModeList {
		hint = "one item per line • " + hint
	}
	lines = append(lines, hintStyle.Render(hint))

	return boxStyle.Render(strings.Join(lines, "\n")) + "\n"
}
