package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pickerWallets = []PickerItem{
	{Label: "alice", SubLabel: "0xf39F...2266", Value: "alice"},
	{Label: "bob", SubLabel: "0x7099...79C8", Value: "bob"},
	{Label: "carol", Value: "carol"},
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickerStartsOnCurrent(t *testing.T) {
	m := newPicker("Use wallet", pickerWallets, "bob")
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.View(), "●")

	assert.Equal(t, 0, newPicker("Use wallet", pickerWallets, "nobody").cursor)
}

func TestPickerNavigateAndSelect(t *testing.T) {
	var model tea.Model = newPicker("Use wallet", pickerWallets, "")
	model, _ = model.Update(key("j"))
	model, _ = model.Update(key("down"))
	model, _ = model.Update(key("down"))
	model, cmd := model.Update(key("enter"))
	require.NotNil(t, cmd)

	m := model.(pickerModel)
	require.NotNil(t, m.selected)
	assert.Equal(t, "carol", m.selected.Value)
}

func TestPickerCancel(t *testing.T) {
	model, _ := newPicker("Use wallet", pickerWallets, "").Update(key("q"))
	m := model.(pickerModel)
	assert.True(t, m.quitting)
	assert.Nil(t, m.selected)
	assert.Empty(t, m.View())
}

func TestPickItemRejectsEmptyList(t *testing.T) {
	_, err := PickItem("Use wallet", nil, "")
	assert.Error(t, err)
}
