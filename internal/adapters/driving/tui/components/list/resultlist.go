// Package list renders index hits for the TUI.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

const barWidth = 5

// ResultList shows search hits grouped under their document, with a bar
// giving each hit's score relative to the best one.
type ResultList struct {
	styles   *styles.Styles
	hits     []domain.SearchHit
	selected int
	width    int
	height   int
}

// NewResultList creates an empty list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 10}
}

// SetHits replaces the hits and selects the first one.
func (r *ResultList) SetHits(hits []domain.SearchHit) {
	r.hits = hits
	r.selected = 0
}

func (r *ResultList) Hits() []domain.SearchHit        { return r.hits }
func (r *ResultList) SetDimensions(width, height int) { r.width, r.height = width, height }

// SelectedHit returns the highlighted hit, or nil when the list is empty.
func (r *ResultList) SelectedHit() *domain.SearchHit {
	if r.selected >= len(r.hits) {
		return nil
	}
	return &r.hits[r.selected]
}

func (r *ResultList) MoveUp() {
	r.selected = max(r.selected-1, 0)
}

func (r *ResultList) MoveDown() {
	r.selected = max(min(r.selected+1, len(r.hits)-1), 0)
}

// View renders the hits in rank order. Consecutive hits of the same
// document share one heading.
func (r *ResultList) View() string {
	if len(r.hits) == 0 {
		return r.styles.Muted.Render("No results")
	}

	var b strings.Builder
	b.WriteString(r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.hits))))
	b.WriteString("\n")

	first, last := r.window()
	top := r.hits[0].Score
	prevDoc := ""
	for i := first; i < last; i++ {
		hit := r.hits[i]
		if hit.DocumentID != prevDoc || i == first {
			b.WriteString("\n" + r.heading(hit) + "\n")
			prevDoc = hit.DocumentID
		}
		b.WriteString(r.line(i, hit, top) + "\n")
	}
	if last < len(r.hits) {
		b.WriteString(r.styles.Muted.Render(fmt.Sprintf("  … %d more", len(r.hits)-last)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// window returns the range of hits that fit, keeping the selection visible.
// A hit takes about two lines once headings are counted.
func (r *ResultList) window() (int, int) {
	fit := max((r.height-3)/2, 1)
	first := max(r.selected-fit+1, 0)
	return first, min(first+fit, len(r.hits))
}

func (r *ResultList) heading(hit domain.SearchHit) string {
	name := hit.DocumentName
	if name == "" {
		name = hit.DocumentID
	}
	return r.styles.Normal.Render(Truncate(name, max(r.width-2, 10)))
}

func (r *ResultList) line(i int, hit domain.SearchHit, top float64) string {
	meta := fmt.Sprintf("%s #%d %-7s %.3f", scoreBar(hit.Score, top), hit.ChunkIndex, hit.Method, hit.Score)
	snippet := Truncate(strings.Join(strings.Fields(hit.Text), " "), max(r.width-len(meta)-6, 16))

	if i == r.selected {
		return r.styles.Selected.Render("> " + meta + "  " + snippet)
	}
	return "  " + r.styles.Muted.Render(meta) + "  " + snippet
}

// scoreBar draws score as a share of top. Vector and keyword scores are
// not comparable, but within one result list the order is what matters.
func scoreBar(score, top float64) string {
	filled := barWidth
	if top > 0 {
		filled = int(score/top*barWidth + 0.5)
	}
	filled = max(min(filled, barWidth), 0)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", barWidth-filled)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
