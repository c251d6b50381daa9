package kiosk

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the kiosk.
type KeyMap struct {
	Accept key.Binding
	Pay    key.Binding
	Cancel key.Binding
	Update key.Binding
	Quit   key.Binding

	// Setup form navigation.
	NextField key.Binding
	PrevField key.Binding
	Delete    key.Binding
}

// DefaultKeyMap matches the scanner (which terminates every scan with
// Enter) and the function keys labelled on the fridge keyboard.
var DefaultKeyMap = KeyMap{
	Accept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "scan"),
	),
	Pay: key.NewBinding(
		key.WithKeys("f1", "ctrl+p"),
		key.WithHelp("F1", "pay"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Update: key.NewBinding(
		key.WithKeys("f5"),
		key.WithHelp("F5", "update"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "previous field"),
	),
	Delete: key.NewBinding(
		key.WithKeys("backspace"),
	),
}
