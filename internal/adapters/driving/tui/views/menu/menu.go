// Package menu is the TUI start screen.
package menu

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
)

// Item is one menu entry. An item without a View quits.
type Item struct {
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool
}

var items = []Item{
	{Label: "Ask", Description: "Ask the news agent a question", View: messages.ViewAsk},
	{Label: "Search", Description: "Query the document index", View: messages.ViewSearch},
	{Label: "Documents", Description: "Browse indexed documents", View: messages.ViewDocuments},
	{Label: "Help", Description: "Show keybindings", View: messages.ViewHelp},
	{Label: "Quit", Quit: true},
}

// View lists the top-level screens. Items are picked with the arrow keys
// or by their number.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	selected int
	// running marks the Ask entry while a task streams in the background.
	running bool

	width, height int
	ready         bool
}

// NewView returns the menu with the first item selected.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{styles: s, keymap: km, width: 80, height: 24}
}

func (v *View) Init() tea.Cmd { return nil }

// Update moves the selection or picks an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keymap.Up):
			v.selected = max(v.selected-1, 0)
		case key.Matches(msg, v.keymap.Down):
			v.selected = min(v.selected+1, len(items)-1)
		case key.Matches(msg, v.keymap.Select):
			return v, v.pick(v.selected)
		case key.Matches(msg, v.keymap.Quit):
			return v, tea.Quit
		default:
			if n, ok := digit(msg); ok && n <= len(items) {
				v.selected = n - 1
				return v, v.pick(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) pick(i int) tea.Cmd {
	item := items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

func digit(msg tea.KeyMsg) (int, bool) {
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return 0, false
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return 0, false
	}
	return int(r - '0'), true
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Newsdesk") + "\n\n")
	b.WriteString(v.styles.Muted.Render("News research agent") + "\n\n")

	for i, item := range items {
		label := fmt.Sprintf("%d %-10s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		if item.Description != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		}
		if v.running && item.View == messages.ViewAsk {
			b.WriteString("  " + v.styles.Warning.Render("● task running"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [1-5] Jump  [Enter] Select  [q] Quit"))
	return b.String()
}

func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// SetRunning flags whether a task is streaming in the ask view.
func (v *View) SetRunning(running bool) { v.running = running }

func (v *View) Selected() int { return v.selected }
func (v *View) Items() []Item { return items }
