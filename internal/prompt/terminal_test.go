package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/capability"
)

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(model)
}

func press(t *testing.T, m model, k tea.KeyType) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(model), cmd
}

func TestModel_SubmitsValidNumber(t *testing.T) {
	// --- Arrange ---
	m := newModel(capability.Prompt{Mode: capability.ModeNumber, Required: true})

	// --- Act ---
	m = typeText(t, m, "42")
	m, cmd := press(t, m, tea.KeyEnter)

	// --- Assert ---
	assert.True(t, m.submitted)
	assert.Equal(t, "42", m.value())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ValidationKeepsFormOpen(t *testing.T) {
	// --- Arrange ---
	m := newModel(capability.Prompt{Mode: capability.ModeInteger, Required: true})

	// --- Act ---
	m = typeText(t, m, "2.5")
	m, cmd := press(t, m, tea.KeyEnter)

	// --- Assert ---
	assert.False(t, m.submitted)
	assert.Nil(t, cmd)
	assert.Contains(t, m.err, "whole number")
	assert.Contains(t, m.View(), "whole number")

	m = typeText(t, m, "x")
	assert.Empty(t, m.err, "typing clears the previous error")
}

func TestModel_Cancel(t *testing.T) {
	m := newModel(capability.Prompt{Default: "keep"})

	m, cmd := press(t, m, tea.KeyEsc)

	assert.True(t, m.cancelled)
	assert.False(t, m.submitted)
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestModel_MultilineUsesEnterForNewlines(t *testing.T) {
	// --- Arrange ---
	m := newModel(capability.Prompt{Mode: capability.ModeList, Title: "Items"})
	assert.Contains(t, m.View(), "one item per line")

	// --- Act ---
	m = typeText(t, m, "a")
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "b")
	assert.False(t, m.submitted)
	m, _ = press(t, m, tea.KeyCtrlD)

	// --- Assert ---
	assert.True(t, m.submitted)
	assert.Equal(t, "a\nb", m.value())
}

func TestModel_DefaultsAndPassword(t *testing.T) {
	m := newModel(capability.Prompt{Mode: capability.ModePassword, Default: "secret", Title: "Token"})

	assert.Equal(t, "secret", m.value())
	view := m.View()
	assert.Contains(t, view, "Token")
	assert.NotContains(t, view, "secret")
}
