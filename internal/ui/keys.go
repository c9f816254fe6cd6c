package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Login    key.Binding
	Register key.Binding
	Logout   key.Binding
	Edit     key.Binding
	Refresh  key.Binding
	Save     key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
	Logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "logout")),
	Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit profile")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh profile")),
	Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
}
