package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	category key.Binding
	clear    key.Binding
	refresh  key.Binding
	filter   key.Binding
	open     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "videos")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		category: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "set category")),
		clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear category")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.filter},
		{k.category, k.clear, k.refresh},
		{k.back, k.open, k.quit},
	}
}
