package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeInto(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func listingFields() []FormField {
	return []FormField{
		{Label: "Auction ID"},
		{Label: "Initial price", Value: "10"},
		{Label: "Seller", Validate: func(s string) error {
			if s != "0xabc" {
				return errors.New("not an address")
			}
			return nil
		}},
	}
}

func TestFormSubmitsValuesInOrder(t *testing.T) {
	var m tea.Model = newForm("Create auction", listingFields())
	m = typeInto(m, "7")
	m, _ = m.Update(key("tab"))
	m, _ = m.Update(key("enter"))
	m = typeInto(m, " 0xabc ")
	m, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)

	fm := m.(formModel)
	require.True(t, fm.submitted)
	assert.Equal(t, []string{"7", "10", "0xabc"}, fm.values())
	assert.Empty(t, fm.View())
}

func TestFormRequiresEveryField(t *testing.T) {
	var m tea.Model = newForm("Create auction", listingFields())
	m, _ = m.Update(key("up"))
	m = typeInto(m, "0xabc")
	m, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd)

	fm := m.(formModel)
	assert.False(t, fm.submitted)
	assert.Equal(t, 0, fm.focus, "focus jumps back to the empty field")
	assert.Contains(t, fm.View(), "Auction ID is required")
}

func TestFormRunsFieldValidation(t *testing.T) {
	var m tea.Model = newForm("Create auction", listingFields())
	m = typeInto(m, "1")
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("down"))
	m = typeInto(m, "nope")
	m, _ = m.Update(key("enter"))

	fm := m.(formModel)
	assert.False(t, fm.submitted)
	assert.Equal(t, 2, fm.focus)
	assert.Contains(t, fm.err, "Seller: not an address")
}

func TestFormCancel(t *testing.T) {
	m, cmd := newForm("Create auction", listingFields()).Update(key("esc"))
	require.NotNil(t, cmd)
	assert.True(t, m.(formModel).cancelled)
}

func TestRunFormNeedsFields(t *testing.T) {
	_, err := RunForm("empty", nil)
	assert.Error(t, err)
}
