package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Login    key.Binding
	Register key.Binding
	Logout   key.Binding
	Refresh  key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Login:    key.NewBinding(key.WithKeys("L", "l"), key.WithHelp("L", "login")),
	Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
	Logout:   key.NewBinding(key.WithKeys("O", "o"), key.WithHelp("O", "logout")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Login, k.Register, k.Logout, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Back}}
}

// setLoggedIn enables the bindings that make sense for the session state.
func (k *KeyMap) setLoggedIn(loggedIn bool) {
	k.Login.SetEnabled(!loggedIn)
	k.Register.SetEnabled(!loggedIn)
	k.Logout.SetEnabled(loggedIn)
}
