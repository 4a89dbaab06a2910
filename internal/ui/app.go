package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/keyhole/internal/auth"
	"github.com/fragmede/keyhole/internal/config"
	"github.com/fragmede/keyhole/internal/ui/home"
	"github.com/fragmede/keyhole/internal/ui/login"
	"github.com/fragmede/keyhole/internal/ui/messages"
	"github.com/fragmede/keyhole/internal/ui/register"
	"github.com/fragmede/keyhole/internal/ui/statusbar"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewHome ViewType = iota
	ViewLogin
	ViewRegister
)

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType

	// Child models
	home         home.Model
	loginForm    login.Model
	registerForm register.Model
	statusBar    statusbar.Model
	help         help.Model
	keys         KeyMap

	// Shared state
	store       *auth.Store
	keeper      *auth.Keeper
	snapshot    auth.Snapshot
	unsubscribe func()

	// Dimensions
	width  int
	height int
}

// NewApp creates the root application model.
func NewApp(cfg config.Config, store *auth.Store, keeper *auth.Keeper) *App {
	keys := Keys
	keys.setLoggedIn(false)
	return &App{
		activeView: ViewHome,
		home:       home.New(cfg.BaseURL),
		statusBar:  statusbar.New("keyhole"),
		help:       help.New(),
		keys:       keys,
		store:      store,
		keeper:     keeper,
		snapshot:   store.Snapshot(),
	}
}

// SetProgram forwards store changes into the program as
// SessionChangedMsg.
func (a *App) SetProgram(p *tea.Program) {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.unsubscribe = a.store.Subscribe(func(s auth.Snapshot) {
		p.Send(messages.SessionChangedMsg{Snapshot: s})
	})
}

// Close stops forwarding store changes.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Init restores the saved session.
func (a *App) Init() tea.Cmd {
	return a.tryRestoreSession()
}

func (a *App) tryRestoreSession() tea.Cmd {
	keeper := a.keeper
	return func() tea.Msg {
		res, err := keeper.Restore(context.Background())
		return messages.FetchResultMsg{Result: res, Err: err}
	}
}

func (a *App) refresh() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		return messages.FetchResultMsg{Result: store.FetchUser(context.Background())}
	}
}

func (a *App) logout() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		return messages.LogoutResultMsg{Err: store.Logout(context.Background())}
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := a.contentHeight()
		a.home.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		a.help.Width = msg.Width
		switch a.activeView {
		case ViewLogin:
			a.loginForm.SetSize(msg.Width, contentHeight)
		case ViewRegister:
			a.registerForm.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		if a.activeView == ViewHome {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.Login):
				return a, a.openLogin()
			case key.Matches(msg, a.keys.Register):
				return a, a.openRegister()
			case key.Matches(msg, a.keys.Logout):
				a.statusBar.SetStatus("Logging out...", false)
				return a, a.logout()
			case key.Matches(msg, a.keys.Refresh):
				a.home.SetLoading(true)
				a.statusBar.SetStatus("Refreshing...", false)
				return a, a.refresh()
			}
			return a, nil
		}
		// Text input views only react to esc and ctrl+c here.
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "esc":
			// The result of an in-flight submit belongs to the form.
			if a.formSubmitting() {
				return a, nil
			}
			return a, a.goBack()
		}

	// View transitions.
	case messages.OpenLoginMsg:
		return a, a.openLogin()

	case messages.OpenRegisterMsg:
		return a, a.openRegister()

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.SessionChangedMsg:
		a.applySnapshot(msg.Snapshot)
		if msg.Snapshot.LoggedIn && a.activeView != ViewHome {
			a.activeView = ViewHome
			a.previousViews = nil
		}
		return a, nil

	case messages.FetchResultMsg:
		a.applySnapshot(a.store.Snapshot())
		a.statusBar.SetOffline(msg.Result.Status == auth.FetchFailed)
		switch {
		case msg.Err != nil:
			a.statusBar.SetStatus(messages.ErrorText(msg.Err), true)
		case msg.Result.Status == auth.FetchFailed:
			a.statusBar.SetStatus(messages.ErrorText(msg.Result.Err), true)
		default:
			a.statusBar.SetStatus("", false)
		}
		return a, nil

	case messages.LogoutResultMsg:
		a.applySnapshot(a.store.Snapshot())
		if msg.Err != nil {
			a.statusBar.SetStatus("Logged out locally; "+messages.ErrorText(msg.Err), true)
		} else {
			a.statusBar.SetStatus("Logged out", false)
		}
		return a, nil

	case messages.LoginResultMsg:
		a.applySnapshot(a.store.Snapshot())
		if msg.Err != nil {
			a.statusBar.SetStatus("Login failed", true)
		} else if a.snapshot.LoggedIn {
			a.statusBar.SetStatus("Logged in", false)
			a.goHome()
			return a, nil
		}
		// Let the login form show the field errors.

	case messages.RegisterResultMsg:
		a.applySnapshot(a.store.Snapshot())
		if msg.Err != nil {
			a.statusBar.SetStatus("Registration failed", true)
		} else if a.snapshot.LoggedIn {
			a.statusBar.SetStatus("Welcome!", false)
			a.goHome()
			return a, nil
		} else if a.snapshot.RegisterErrors.Empty() && !a.snapshot.LoginErrors.Empty() {
			// The account exists but the chained login was rejected.
			a.goHome()
			return a, a.openLogin()
		}

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewHome:
		a.home, cmd = a.home.Update(msg)
		cmds = append(cmds, cmd)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewRegister:
		a.registerForm, cmd = a.registerForm.Update(msg)
		cmds = append(cmds, cmd)
	}

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View renders the application.
func (a *App) View() string {
	var content string
	switch a.activeView {
	case ViewHome:
		content = lipgloss.JoinVertical(lipgloss.Left,
			a.home.View(),
			HelpStyle.Render(a.help.View(a.keys)))
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.registerForm.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

func (a *App) applySnapshot(s auth.Snapshot) {
	a.snapshot = s
	a.home.SetUser(s.User)
	a.keys.setLoggedIn(s.LoggedIn)
	a.loginForm.SetErrors(s.LoginErrors)
	a.registerForm.SetErrors(s.RegisterErrors)
	if s.User != nil {
		name := s.User.Name
		if name == "" {
			name = s.User.Email
		}
		a.statusBar.SetUser(name)
		a.statusBar.SetOffline(false)
	} else {
		a.statusBar.SetUser("")
	}
}

// contentHeight reserves one line for the status bar and one for help.
func (a *App) contentHeight() int {
	h := a.height - 2
	if h < 0 {
		return 0
	}
	return h
}

func (a *App) formSubmitting() bool {
	switch a.activeView {
	case ViewLogin:
		return a.loginForm.Submitting()
	case ViewRegister:
		return a.registerForm.Submitting()
	}
	return false
}

func (a *App) openLogin() tea.Cmd {
	if a.snapshot.LoggedIn {
		return nil
	}
	a.pushView(ViewLogin)
	a.loginForm = login.New(a.store, a.keeper.LastEmail())
	a.loginForm.SetSize(a.width, a.contentHeight())
	return textinput.Blink
}

func (a *App) openRegister() tea.Cmd {
	if a.snapshot.LoggedIn {
		return nil
	}
	a.pushView(ViewRegister)
	a.registerForm = register.New(a.store)
	a.registerForm.SetSize(a.width, a.contentHeight())
	return textinput.Blink
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
	}
	return nil
}

func (a *App) goHome() {
	a.activeView = ViewHome
	a.previousViews = nil
}
