package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	label  string
	secret bool
}

// form is a vertical stack of text inputs with one focused at a time.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(title string, fields ...field) form {
	f := form{title: title}
	for i, fd := range fields {
		ti := textinput.New()
		ti.Placeholder = fd.label
		ti.CharLimit = 256
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		if i == 0 {
			ti.Focus()
		}
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, ti)
	}
	return f
}

func newLoginForm() form {
	return newForm("Log in", field{label: "username"}, field{label: "password", secret: true})
}

func newSignupForm() form {
	return newForm("Create account",
		field{label: "name"}, field{label: "username"}, field{label: "password", secret: true})
}

func newSubmitForm() form {
	return newForm("Submit a story", field{label: "author"}, field{label: "title"}, field{label: "url"})
}

// move shifts focus by delta, wrapping around.
func (f *form) move(delta int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *form) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		return f.move(1)
	case "shift+tab", "up":
		return f.move(-1)
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// values returns the input values in field order. Non-secret values are trimmed.
func (f form) values() []string {
	out := make([]string, len(f.inputs))
	for i, ti := range f.inputs {
		if ti.EchoMode == textinput.EchoPassword {
			out[i] = ti.Value()
		} else {
			out[i] = strings.TrimSpace(ti.Value())
		}
	}
	return out
}

func (f form) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title))
	b.WriteString("\n")
	for i, ti := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = styles.active.Render(label)
		}
		b.WriteString(label + "\n" + ti.View() + "\n\n")
	}
	return b.String()
}
