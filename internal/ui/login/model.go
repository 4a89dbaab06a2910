package login

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
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).
			Padding(1, 0)
)

const fieldWidth = 40

// Model is the login form view.
type Model struct {
	emailInput    textinput.Model
	passwordInput textinput.Model
	focusIndex    int
	fieldErrs     auth.LoginErrors
	err           string
	submitting    bool
	store         *auth.Store
	width         int
	height        int
}

// New creates a login form. email prefills the e-mail field.
func New(store *auth.Store, email string) Model {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.CharLimit = 255
	emailInput.Width = 30
	emailInput.SetValue(email)

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.Width = 30

	m := Model{
		emailInput:    emailInput,
		passwordInput: passwordInput,
		store:         store,
		fieldErrs:     store.LoginErrors(),
	}
	if email != "" {
		m.focusIndex = 1
		m.passwordInput.Focus()
	} else {
		m.emailInput.Focus()
	}
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetErrors replaces the field errors shown under the inputs.
func (m *Model) SetErrors(errs auth.LoginErrors) {
	m.fieldErrs = errs
}

// Submitting reports whether a login request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			if m.focusIndex == 0 {
				m.focusIndex = 1
				m.emailInput.Blur()
				return m, m.passwordInput.Focus()
			}
			m.focusIndex = 0
			m.passwordInput.Blur()
			return m, m.emailInput.Focus()
		case "enter":
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			m.err = ""
			store := m.store
			creds := api.Credentials{
				Email:    strings.TrimSpace(m.emailInput.Value()),
				Password: m.passwordInput.Value(),
			}
			return m, func() tea.Msg {
				return messages.LoginResultMsg{Err: store.Login(context.Background(), creds)}
			}
		}

	case messages.LoginResultMsg:
		m.submitting = false
		m.fieldErrs = m.store.LoginErrors()
		if msg.Err != nil {
			m.err = messages.ErrorText(msg.Err)
			return m, nil
		}
		if !m.fieldErrs.Empty() {
			m.passwordInput.SetValue("")
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Log in"))
	sb.WriteString("\n\n")
	sb.WriteString(labelStyle.Render("Email:"))
	sb.WriteString("\n")
	sb.WriteString(m.emailInput.View())
	sb.WriteString("\n")
	writeFieldError(&sb, m.fieldErrs.Email)
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("Password:"))
	sb.WriteString("\n")
	sb.WriteString(m.passwordInput.View())
	sb.WriteString("\n")
	writeFieldError(&sb, m.fieldErrs.Password)
	sb.WriteString("\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Logging in...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " + focusedStyle.Render("Esc") + " to cancel")
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func writeFieldError(sb *strings.Builder, msg string) {
	if msg == "" {
		return
	}
	sb.WriteString(errorStyle.Render(render.PlainText(msg, fieldWidth)))
	sb.WriteString("\n")
}
