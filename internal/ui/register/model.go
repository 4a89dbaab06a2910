package register

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/keyhole/internal/api"
	"github.com/fragmede/keyhole/internal/auth"
	"github.com/fragmede/keyhole/internal/render"
	"github.com/fragmede/keyhole/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true).Width(10)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).PaddingLeft(11)
)

type field int

const (
	fieldName field = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	numFields
)

// Model is the registration form.
type Model struct {
	inputs     [numFields]textinput.Model
	focused    field
	fieldErrs  auth.RegisterErrors
	err        string
	submitting bool
	store      *auth.Store
	width      int
	height     int
}

// New creates a registration form.
func New(store *auth.Store) Model {
	var inputs [numFields]textinput.Model

	inputs[fieldName] = textinput.New()
	inputs[fieldName].Placeholder = "Your name"
	inputs[fieldName].CharLimit = 255
	inputs[fieldName].Focus()

	inputs[fieldEmail] = textinput.New()
	inputs[fieldEmail].Placeholder = "you@example.com"
	inputs[fieldEmail].CharLimit = 255

	inputs[fieldPassword] = textinput.New()
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword

	inputs[fieldConfirm] = textinput.New()
	inputs[fieldConfirm].Placeholder = "password again"
	inputs[fieldConfirm].EchoMode = textinput.EchoPassword

	for i := range inputs {
		inputs[i].Width = 40
	}

	return Model{
		inputs:    inputs,
		focused:   fieldName,
		store:     store,
		fieldErrs: store.RegisterErrors(),
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	fw := w - 16
	if fw > 60 {
		fw = 60
	}
	for i := range m.inputs {
		m.inputs[i].Width = fw
	}
}

// SetErrors replaces the field errors shown under the inputs.
func (m *Model) SetErrors(errs auth.RegisterErrors) {
	m.fieldErrs = errs
}

// Submitting reports whether a registration request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focused = (m.focused + 1) % numFields
			return m, m.updateFocus()
		case "shift+tab", "up":
			m.focused = (m.focused + numFields - 1) % numFields
			return m, m.updateFocus()
		case "enter":
			if m.focused != fieldConfirm {
				m.focused++
				return m, m.updateFocus()
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}

	case messages.RegisterResultMsg:
		m.submitting = false
		m.fieldErrs = m.store.RegisterErrors()
		if msg.Err != nil {
			m.err = messages.ErrorText(msg.Err)
			return m, nil
		}
		if !m.fieldErrs.Empty() {
			m.inputs[fieldPassword].SetValue("")
			m.inputs[fieldConfirm].SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	m.submitting = true
	m.err = ""
	store := m.store
	u := api.NewUser{
		Name:                 strings.TrimSpace(m.inputs[fieldName].Value()),
		Email:                strings.TrimSpace(m.inputs[fieldEmail].Value()),
		Password:             m.inputs[fieldPassword].Value(),
		PasswordConfirmation: m.inputs[fieldConfirm].Value(),
	}
	return m, func() tea.Msg {
		return messages.RegisterResultMsg{Err: store.Register(context.Background(), u)}
	}
}

func (m *Model) updateFocus() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	return m.inputs[m.focused].Focus()
}

// View renders the registration form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Create an account"))
	sb.WriteString("\n\n")

	rows := []struct {
		label string
		f     field
		err   string
	}{
		{"name", fieldName, m.fieldErrs.Name},
		{"email", fieldEmail, m.fieldErrs.Email},
		{"password", fieldPassword, m.fieldErrs.Password},
		{"confirm", fieldConfirm, m.fieldErrs.PasswordConfirmation},
	}
	for _, r := range rows {
		sb.WriteString(labelStyle.Render(r.label) + " " + m.inputs[r.f].View())
		sb.WriteString("\n")
		if r.err != "" {
			sb.WriteString(errorStyle.Render(render.PlainText(r.err, 50)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if m.err != "" {
		sb.WriteString(errorStyle.UnsetPaddingLeft().Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Creating account...")
	} else {
		sb.WriteString(hintStyle.Render("Tab to switch fields | Enter on the last field or Ctrl+S to submit | Esc to cancel"))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
