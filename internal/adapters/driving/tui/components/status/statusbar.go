// Package status renders the one-line status bar shared by the views.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
)

// State selects what the left side of the bar shows and which key hints
// appear on the right.
type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateError     State = "error"
	StateResults   State = "results"
)

// Bar is passive: views push state into it and render it last.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	width  int

	state       State
	message     string
	resultCount int

	// stage progress of a running task
	stage, stages int
	started       time.Time
	now           func() time.Time
}

// NewBar returns a ready bar. Nil styles or keymap fall back to defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, width: 80, state: StateReady, now: time.Now}
}

// View lays out the status on the left and key hints on the right.
func (s *Bar) View() string {
	left, right := s.status(), s.hints()
	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) status() string {
	switch s.state {
	case StateSearching:
		return s.styles.Muted.Render("Searching...")
	case StateRunning:
		return s.styles.Warning.Render(s.running())
	case StateDone:
		msg := or(s.message, "Done")
		if !s.started.IsZero() {
			msg += " in " + s.elapsed()
		}
		return s.styles.Success.Render(msg)
	case StateError:
		if s.message == "" {
			return s.styles.Error.Render("Error")
		}
		return s.styles.Error.Render("Error: " + s.message)
	case StateResults:
		if s.resultCount == 1 {
			return s.styles.Normal.Render("1 result")
		}
		return s.styles.Normal.Render(fmt.Sprintf("%d results", s.resultCount))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) running() string {
	parts := make([]string, 0, 3)
	if s.stages > 0 {
		parts = append(parts, fmt.Sprintf("[%d/%d]", s.stage, s.stages))
	}
	parts = append(parts, or(s.message, "Running..."))
	if !s.started.IsZero() {
		parts = append(parts, s.elapsed())
	}
	return strings.Join(parts, " ")
}

func (s *Bar) elapsed() string {
	return s.now().Sub(s.started).Round(time.Second).String()
}

func (s *Bar) hints() string {
	var bindings []key.Binding
	switch {
	case s.state == StateRunning:
		bindings = s.keymap.RunHelp()
	case s.state == StateResults && s.resultCount > 0:
		bindings = s.keymap.ResultsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Start switches to StateRunning and starts the elapsed clock.
func (s *Bar) Start(message string) {
	s.state = StateRunning
	s.message = message
	s.stage, s.stages = 0, 0
	s.started = s.now()
}

// SetProgress records how many of total stages have been reached.
func (s *Bar) SetProgress(stage, total int) {
	s.stage, s.stages = stage, total
}

func (s *Bar) SetState(state State)     { s.state = state }
func (s *Bar) State() State             { return s.state }
func (s *Bar) SetMessage(msg string)    { s.message = msg }
func (s *Bar) Message() string          { return s.message }
func (s *Bar) SetResultCount(count int) { s.resultCount = count }
func (s *Bar) ResultCount() int         { return s.resultCount }
func (s *Bar) SetWidth(width int)       { s.width = width }
func (s *Bar) Width() int               { return s.width }

// Clear returns the bar to StateReady and forgets any run.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.resultCount = 0
	s.stage, s.stages = 0, 0
	s.started = time.Time{}
}
