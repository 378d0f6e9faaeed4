// Package styles provides colour themes and styling for the TUI and
// the styled CLI output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// Theme defines the colour palette.
type Theme struct {
	// Primary is the main accent colour.
	Primary lipgloss.Color

	// Secondary is the secondary accent colour.
	Secondary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Success indicates positive outcomes.
	Success lipgloss.Color

	// Warning indicates caution.
	Warning lipgloss.Color

	// Error indicates problems.
	Error lipgloss.Color

	// Border is the border colour.
	Border lipgloss.Color

	// Reasoning colours the agent's reasoning fragments.
	Reasoning lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#E4572E"), // Press red
		Secondary:  lipgloss.Color("#29B6F6"), // Wire blue
		Foreground: lipgloss.Color("#E0E0E0"),
		Muted:      lipgloss.Color("#757575"),
		Success:    lipgloss.Color("#66BB6A"),
		Warning:    lipgloss.Color("#FFCA28"),
		Error:      lipgloss.Color("#EF5350"),
		Border:     lipgloss.Color("#424242"),
		Reasoning:  lipgloss.Color("#9575CD"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Help     lipgloss.Style

	// InputField style for input areas.
	InputField lipgloss.Style

	// StatusBar style for the status bar.
	StatusBar lipgloss.Style

	// Border style for bordered containers.
	Border lipgloss.Style

	// Reasoning renders reasoning fragments.
	Reasoning lipgloss.Style

	// Trace renders tool and delegation traces.
	Trace lipgloss.Style

	// StageDone, StageActive and StagePending render the stage progress line.
	StageDone    lipgloss.Style
	StageActive  lipgloss.Style
	StagePending lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal:  lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Help:    lipgloss.NewStyle().Foreground(theme.Muted),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Foreground).
			Background(theme.Primary),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(lipgloss.Color("#1A1A1A")).
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Reasoning: lipgloss.NewStyle().
			Italic(true).
			Foreground(theme.Reasoning),

		Trace: lipgloss.NewStyle().
			Foreground(theme.Secondary),

		StageDone: lipgloss.NewStyle().
			Foreground(theme.Success),

		StageActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning),

		StagePending: lipgloss.NewStyle().
			Foreground(theme.Muted),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// StageLine renders the ordered stages with the ones reached so far
// highlighted: completed stages are ticked and the current one is marked.
func (s *Styles) StageLine(state domain.RoutingState) string {
	stages := domain.Stages
	parts := make([]string, 0, len(stages))
	for _, stage := range stages {
		switch {
		case stage == state.Current && stage == domain.StageComplete:
			parts = append(parts, s.StageDone.Render("✓ "+stage.Label()))
		case stage == state.Current:
			parts = append(parts, s.StageActive.Render("● "+stage.Label()))
		case stage.Rank() < state.HighWaterRank:
			parts = append(parts, s.StageDone.Render("✓ "+stage.Label()))
		default:
			parts = append(parts, s.StagePending.Render(stage.Label()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinArrows(parts, s.StagePending.Render(" → "))...)
}

func joinArrows(parts []string, arrow string) []string {
	out := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			out = append(out, arrow)
		}
		out = append(out, p)
	}
	return out
}
