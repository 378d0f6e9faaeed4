// Package doccontent provides the document content view component for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// ErrNoIndexService is returned when the view has no index to read from.
var ErrNoIndexService = errors.New("index service not available")

// View is the document content view.
type View struct {
	styles *styles.Styles
	index  driving.IndexService
	ctx    context.Context

	// back is the view esc returns to.
	back messages.ViewType

	documentID   string
	document     *domain.DocumentRecord
	lines        []string
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, index driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		index:  index,
		ctx:    context.Background(),
		back:   messages.ViewDocuments,
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Open resets the view for a document and returns a command loading it.
// back is the view restored on esc.
func (v *View) Open(documentID string, back messages.ViewType) tea.Cmd {
	v.documentID = documentID
	v.document = nil
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.back = back
	v.loading = true

	index, ctx := v.index, v.ctx
	return func() tea.Msg {
		if index == nil {
			return messages.DocumentContentLoaded{Err: ErrNoIndexService}
		}
		doc, err := index.Get(ctx, documentID)
		return messages.DocumentContentLoaded{Document: doc, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.document = msg.Document
		v.wrapContent()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		v.scrollTo(v.scrollOffset - 1)
	case "down", "j":
		v.scrollTo(v.scrollOffset + 1)
	case "pgup", "ctrl+u":
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case "pgdown", "ctrl+d":
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case "home", "g":
		v.scrollTo(0)
	case "end", "G":
		v.scrollTo(v.maxScrollOffset())
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}

	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = max(0, min(offset, v.maxScrollOffset()))
}

// wrapContent word-wraps the document text to the view width.
func (v *View) wrapContent() {
	if v.document == nil || v.document.RawText == "" {
		v.lines = nil
		return
	}
	contentWidth := max(v.width-4, 20)
	wrapped := lipgloss.NewStyle().Width(contentWidth).Render(v.document.RawText)
	v.lines = strings.Split(wrapped, "\n")
	v.scrollTo(v.scrollOffset)
}

func (v *View) visibleLines() int {
	// Reserve lines for title, metadata, separator and help
	return max(v.height-8, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := v.documentID
	if v.document != nil && v.document.Name != "" {
		title = v.document.Name
	}
	if title == "" {
		title = "Document Content"
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	if meta := v.renderMeta(); meta != "" {
		b.WriteString(v.styles.Muted.Render(meta))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		visible := v.visibleLines()
		end := min(v.scrollOffset+visible, len(v.lines))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.styles.Normal.Render(v.lines[i]))
			b.WriteString("\n")
		}
		if len(v.lines) > visible {
			percentage := v.scrollOffset * 100 / v.maxScrollOffset()
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
				percentage, v.scrollOffset+1, end, len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))

	return b.String()
}

func (v *View) renderMeta() string {
	if v.document == nil {
		return ""
	}
	doc := v.document
	parts := []string{doc.Type, string(doc.SourceKind)}
	if doc.PublishDate != "" {
		parts = append(parts, doc.PublishDate)
	}
	if doc.URL != "" {
		parts = append(parts, doc.URL)
	}
	if doc.Status == domain.StatusError && doc.Message != "" {
		parts = append(parts, "error: "+doc.Message)
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " · ")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.wrapContent()
}

// Document returns the loaded document.
func (v *View) Document() *domain.DocumentRecord {
	return v.document
}

// ScrollOffset returns the index of the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// LineCount returns the number of wrapped content lines.
func (v *View) LineCount() int {
	return len(v.lines)
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
