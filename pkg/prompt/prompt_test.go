package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyA     = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}
)

func TestModel_AllSelectedByDefault(t *testing.T) {
	m := NewModel("Pick", []string{"react(17.0.0 -> 18.2.0)", "jest(29.6.0 -> 29.7.0)"})
	assert.Equal(t, []int{0, 1}, m.Selected())
	assert.Contains(t, m.View(), "[x] react(17.0.0 -> 18.2.0)")
}

func TestModel_Toggle(t *testing.T) {
	m := NewModel("Pick", []string{"a", "b", "c"})
	m = press(t, m, keyDown, keySpace)
	assert.Equal(t, []int{0, 2}, m.Selected())

	m = press(t, m, keyUp, keyUp, keySpace)
	assert.Equal(t, []int{2}, m.Selected())

	// cursor stays within bounds
	m = press(t, m, keyDown, keyDown, keyDown, keyDown, keySpace)
	assert.Empty(t, m.Selected())
}

func TestModel_ToggleAll(t *testing.T) {
	m := NewModel("Pick", []string{"a", "b"})
	m = press(t, m, keyA)
	assert.Empty(t, m.Selected())
	m = press(t, m, keyA)
	assert.Equal(t, []int{0, 1}, m.Selected())

	m = press(t, m, keySpace, keyA)
	assert.Equal(t, []int{0, 1}, m.Selected())
}

func TestModel_ConfirmAndAbort(t *testing.T) {
	m := NewModel("Pick", []string{"a"})
	next, cmd := m.Update(keyEnter)
	require.NotNil(t, cmd)
	confirmed := next.(Model)
	assert.False(t, confirmed.Aborted())
	assert.Empty(t, confirmed.View())

	next, cmd = m.Update(keyEsc)
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).Aborted())
}

func TestSelect_NoItems(t *testing.T) {
	idx, err := Select("Pick", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, idx)
}
