package reader

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next       key.Binding
	Previous   key.Binding
	Open       key.Binding
	Refresh    key.Binding
	Save       key.Binding
	KeepUnread key.Binding
	Down       key.Binding
	Up         key.Binding
	PageDown   key.Binding
	PageUp     key.Binding
	SwitchView key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:       key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "next")),
		Previous:   key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "previous")),
		Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Save:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		KeepUnread: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "keep unread")),
		Down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "scroll")),
		Up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "scroll")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "page")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page")),
		SwitchView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "view")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Open, k.Save, k.KeepUnread, k.Refresh, k.SwitchView, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.Open, k.Refresh},
		{k.Save, k.KeepUnread, k.SwitchView, k.Quit},
		{k.Down, k.Up, k.PageDown, k.PageUp},
	}
}
