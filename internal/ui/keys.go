package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	TogglePlay key.Binding
	SeekBack   key.Binding
	SeekFwd    key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Mute       key.Binding
	Next       key.Binding
	Prev       key.Binding
	Shuffle    key.Binding
	Repeat     key.Binding
	Slower     key.Binding
	Faster     key.Binding
	Up         key.Binding
	Down       key.Binding
	MoveUp     key.Binding
	MoveDown   key.Binding
	PlayRow    key.Binding
	Remove     key.Binding
	Open       key.Binding
	Settings   key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	TogglePlay: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	SeekBack:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "seek")),
	SeekFwd:    key.NewBinding(key.WithKeys("right")),
	VolumeUp:   key.NewBinding(key.WithKeys("up", "+"), key.WithHelp("↑/↓", "volume")),
	VolumeDown: key.NewBinding(key.WithKeys("down", "-")),
	Mute:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n/p", "track")),
	Prev:       key.NewBinding(key.WithKeys("p")),
	Shuffle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
	Repeat:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
	Slower:     key.NewBinding(key.WithKeys("["), key.WithHelp("[/]", "speed")),
	Faster:     key.NewBinding(key.WithKeys("]")),
	Up:         key.NewBinding(key.WithKeys("k"), key.WithHelp("j/k", "select")),
	Down:       key.NewBinding(key.WithKeys("j")),
	MoveUp:     key.NewBinding(key.WithKeys("K"), key.WithHelp("J/K", "move")),
	MoveDown:   key.NewBinding(key.WithKeys("J")),
	PlayRow:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
	Remove:     key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
	Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
	Settings:   key.NewBinding(key.WithKeys(","), key.WithHelp(",", "settings")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp lists the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.TogglePlay, k.SeekBack, k.VolumeUp, k.Mute, k.Next, k.Shuffle, k.Repeat, k.Slower, k.Open, k.Settings, k.Quit}
}

// FullHelp adds the playlist editing bindings.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.ShortHelp(),
		{k.Up, k.MoveUp, k.PlayRow, k.Remove},
	}
}
