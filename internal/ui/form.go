package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned by RunForm when the user leaves with esc.
var ErrCancelled = errors.New("cancelled")

// FormField is one labelled input of a form.
type FormField struct {
	Label       string
	Placeholder string
	Value       string             // initial value
	Validate    func(string) error // optional, run on submit
}

type formModel struct {
	title     string
	fields    []FormField
	inputs    []textinput.Model
	focus     int
	err       string
	submitted bool
	cancelled bool
}

func newForm(title string, fields []FormField) formModel {
	m := formModel{title: title, fields: fields}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = f.Placeholder
		ti.CharLimit = 256
		ti.Width = 48
		ti.SetValue(f.Value)
		if i == 0 {
			ti.Focus()
		}
		m.inputs = append(m.inputs, ti)
	}
	return m
}

func (m formModel) Init() tea.Cmd { return textinput.Blink }

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			return m.move(1), nil
		case "shift+tab", "up":
			return m.move(-1), nil
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m.move(1), nil
			}
			if i, err := m.validate(); err != nil {
				m.err = err.Error()
				m = m.focusOn(i)
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m formModel) move(delta int) formModel {
	n := len(m.inputs)
	return m.focusOn(((m.focus+delta)%n + n) % n)
}

func (m formModel) focusOn(i int) formModel {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[i].Focus()
	return m
}

// validate returns the index of the first invalid field.
func (m formModel) validate() (int, error) {
	for i, f := range m.fields {
		v := strings.TrimSpace(m.inputs[i].Value())
		if v == "" {
			return i, fmt.Errorf("%s is required", f.Label)
		}
		if f.Validate != nil {
			if err := f.Validate(v); err != nil {
				return i, fmt.Errorf("%s: %w", f.Label, err)
			}
		}
	}
	return 0, nil
}

func (m formModel) values() []string {
	out := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (m formModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(m.title) + "\n")
	for i, f := range m.fields {
		label := StyleMeta.Render(f.Label)
		if i == m.focus {
			label = StyleHeader.Render(f.Label)
		}
		sb.WriteString(label + "\n" + m.inputs[i].View() + "\n\n")
	}
	if m.err != "" {
		sb.WriteString(Err(m.err) + "\n")
	}
	sb.WriteString(StyleMeta.Render("tab/↓ next · shift+tab/↑ back · enter submit · esc cancel"))
	return StyleBorder.Render(sb.String()) + "\n"
}

// RunForm shows fields one under another and returns the trimmed values in
// field order once every field is filled and valid.
func RunForm(title string, fields []FormField) ([]string, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("form %q has no fields", title)
	}
	final, err := tea.NewProgram(newForm(title, fields)).Run()
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}
	fm := final.(formModel)
	if !fm.submitted {
		return nil, ErrCancelled
	}
	return fm.values(), nil
}
