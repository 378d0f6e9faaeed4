// Package keymap holds the TUI key bindings. Views match keys against a
// shared KeyMap so the help screen and the status bar hints stay in step
// with what the views accept.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap is the set of bindings used across views.
type KeyMap struct {
	Quit, Help, Back key.Binding

	// Submit sends the prompt or query; Select picks a list entry.
	// Both are enter, kept apart so their help text reads right.
	Submit, Select key.Binding

	Up, Down key.Binding

	// Stop cancels the running task.
	Stop      key.Binding
	NewPrompt key.Binding

	// Document list actions.
	Remove, Reload key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:      bind("q", "quit", "q", "ctrl+c"),
		Help:      bind("?", "help", "?"),
		Back:      bind("esc", "back", "esc"),
		Submit:    bind("enter", "submit", "enter"),
		Select:    bind("enter", "select", "enter"),
		Up:        bind("↑/k", "up", "up", "k"),
		Down:      bind("↓/j", "down", "down", "j"),
		Stop:      bind("ctrl+x", "stop", "ctrl+x"),
		NewPrompt: bind("n", "new", "n"),
		Remove:    bind("d", "remove", "d"),
		Reload:    bind("r", "reload", "r"),
	}
}

// ShortHelp is shown in the status bar when nothing more specific applies.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// ResultsHelp is shown over a list of search hits.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewPrompt, k.Up, k.Select, k.Back}
}

// RunHelp is shown while a task streams.
func (k *KeyMap) RunHelp() []key.Binding {
	return []key.Binding{k.Stop, k.Up, k.Down, k.Back}
}

// FullHelp groups every binding for the help screen.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Submit, k.Stop, k.NewPrompt, k.Back},
		{k.Remove, k.Reload},
		{k.Help, k.Quit},
	}
}

// Matches reports whether keyStr, as produced by tea.KeyMsg.String, is
// one of binding's keys. Unlike key.Matches it ignores whether the
// binding is enabled.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}
