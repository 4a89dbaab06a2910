package home

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/keyhole/internal/api"
	"github.com/fragmede/keyhole/internal/render"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(1, 0)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
)

// Model shows the current user, or a prompt to log in.
type Model struct {
	user    *api.User
	loading bool
	baseURL string
	width   int
	height  int
}

// New creates the home view. It starts in the loading state until the
// saved session has been checked.
func New(baseURL string) Model {
	return Model{baseURL: baseURL, loading: true}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetUser sets the user to display; nil means logged out.
func (m *Model) SetUser(u *api.User) {
	m.user = u
	m.loading = false
}

// SetLoading toggles the "checking session" state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// Update is a no-op; the app feeds state in through the setters.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the home view.
func (m Model) View() string {
	var sb strings.Builder

	switch {
	case m.loading:
		sb.WriteString(titleStyle.Render("Checking session with " + m.baseURL + "..."))
	case m.user == nil:
		sb.WriteString(titleStyle.Render("Not logged in"))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(m.baseURL))
	default:
		sb.WriteString(m.userView())
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) userView() string {
	u := m.user
	var sb strings.Builder

	name := u.Name
	if name == "" {
		name = u.Email
	}
	sb.WriteString(titleStyle.Render("Signed in as " + name))
	sb.WriteString("\n")
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label) + valueStyle.Render(value))
		sb.WriteString("\n")
	}
	if u.ID != 0 {
		row("ID", fmt.Sprintf("%d", u.ID))
	}
	if u.Email != "" {
		row("Email", u.Email)
	}
	if u.EmailVerifiedAt != nil {
		row("Verified", render.TimeAgo(*u.EmailVerifiedAt))
	} else {
		sb.WriteString(labelStyle.Render("Verified") + warnStyle.Render("not yet"))
		sb.WriteString("\n")
	}
	if u.CreatedAt != nil {
		row("Member since", render.TimeAgo(*u.CreatedAt))
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(m.baseURL))
	return sb.String()
}
