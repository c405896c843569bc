package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	open       key.Binding
	refresh    key.Binding
	refreshAll key.Binding
	back       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open in obsidian")),
		refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh note")),
		refreshAll: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh all")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.refresh, k.refreshAll, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.open},
		{k.refresh, k.refreshAll},
		{k.back, k.quit},
	}
}
