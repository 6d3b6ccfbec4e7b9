package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of both screens.  The login screen
// only honours Submit, Toggle, FocusNext, FocusPrev and ForceQuit since
// every other key is text input there.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	Lock    key.Binding // lock the seat under the cursor
	Pay     key.Binding
	Clear   key.Binding // drop the held seat
	Refresh key.Binding
	Logout  key.Binding

	Submit    key.Binding
	Toggle    key.Binding // switch between login and signup
	FocusNext key.Binding
	FocusPrev key.Binding

	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "right"),
	),
	Lock: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "reserve"),
	),
	Pay: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pay"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc", "c"),
		key.WithHelp("esc", "clear"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Logout: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "logout"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "login/signup"),
	),
	FocusNext: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next field"),
	),
	FocusPrev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous field"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

// helpLine renders bindings as "key desc" pairs.
func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += "  "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
