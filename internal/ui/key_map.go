package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	favorite  key.Binding
	switchTab key.Binding
	refresh   key.Binding
	submit    key.Binding
	login     key.Binding
	signup    key.Binding
	logout    key.Binding
	next      key.Binding
	confirm   key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		favorite:  key.NewBinding(key.WithKeys("f", " "), key.WithHelp("f", "star")),
		switchTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "feed/favorites")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		submit:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
		login:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "log in")),
		signup:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "create account")),
		logout:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		next:      key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.favorite, k.switchTab},
		{k.refresh, k.submit, k.login, k.signup, k.logout},
		{k.confirm, k.back, k.quit},
	}
}
