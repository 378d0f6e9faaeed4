package doccontent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	docs map[string]domain.DocumentRecord
}

func (m *mockIndexService) Index(_ context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error) {
	return &doc, nil
}

func (m *mockIndexService) Search(context.Context, string, domain.SearchOptions) ([]domain.SearchHit, error) {
	return nil, nil
}

func (m *mockIndexService) Remove(context.Context, string) error { return nil }

func (m *mockIndexService) Get(_ context.Context, id string) (*domain.DocumentRecord, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockIndexService) List(context.Context) ([]domain.DocumentRecord, error) { return nil, nil }

func (m *mockIndexService) RegisterStub(
	_ context.Context, name, docType, message string,
) (*domain.DocumentRecord, error) {
	return &domain.DocumentRecord{Name: name, Type: docType, Message: message}, nil
}

func longText(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func openedView(t *testing.T, doc domain.DocumentRecord, width, height int) *View {
	t.Helper()
	index := &mockIndexService{docs: map[string]domain.DocumentRecord{doc.ID: doc}}
	v := NewView(styles.DefaultStyles(), index)
	v.SetDimensions(width, height)
	cmd := v.Open(doc.ID, messages.ViewDocuments)
	require.NotNil(t, cmd)
	v.Update(cmd())
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.Nil(t, v.Init())
	assert.Nil(t, v.Document())
}

func TestView_Open(t *testing.T) {
	doc := domain.DocumentRecord{
		ID:          "doc-1",
		Name:        "Fed Holds Rates",
		Type:        "NEWS",
		SourceKind:  domain.SourceGenerated,
		URL:         "https://example.com/fed",
		PublishDate: "2026-10-01",
		RawText:     "The Federal Reserve held rates steady.",
		Status:      domain.StatusIndexed,
	}

	v := openedView(t, doc, 100, 30)

	require.NotNil(t, v.Document())
	out := v.View()
	assert.Contains(t, out, "Fed Holds Rates")
	assert.Contains(t, out, "NEWS · generated · 2026-10-01 · https://example.com/fed")
	assert.Contains(t, out, "The Federal Reserve held rates steady.")
}

func TestView_Open_Loading(t *testing.T) {
	v := NewView(nil, &mockIndexService{})

	v.Open("doc-1", messages.ViewDocuments)

	assert.Contains(t, v.View(), "Loading content...")
}

func TestView_Open_NotFound(t *testing.T) {
	v := NewView(nil, &mockIndexService{})

	v.Update(v.Open("missing", messages.ViewDocuments)())

	assert.ErrorIs(t, v.Err(), domain.ErrNotFound)
	assert.Contains(t, v.View(), "Error: not found")
}

func TestView_Open_NoIndex(t *testing.T) {
	v := NewView(nil, nil)

	v.Update(v.Open("doc-1", messages.ViewDocuments)())

	assert.ErrorIs(t, v.Err(), ErrNoIndexService)
}

func TestView_EmptyContent(t *testing.T) {
	v := openedView(t, domain.DocumentRecord{ID: "stub", Name: "scan.pdf", Status: domain.StatusError,
		Message: "unsupported format"}, 80, 24)

	out := v.View()
	assert.Contains(t, out, "(No content)")
	assert.Contains(t, out, "error: unsupported format")
}

func TestView_Scrolling(t *testing.T) {
	// Height 18 leaves ten visible lines.
	v := openedView(t, domain.DocumentRecord{ID: "doc-1", RawText: longText(30)}, 80, 18)
	require.Equal(t, 30, v.LineCount())

	key := func(k tea.KeyMsg) { v.Update(k) }

	key(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, v.ScrollOffset())

	key(tea.KeyMsg{Type: tea.KeyUp})
	key(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.ScrollOffset())

	key(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 10, v.ScrollOffset())

	key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 20, v.ScrollOffset())
	assert.Contains(t, v.View(), "[100%] Line 21-30 of 30")

	key(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 20, v.ScrollOffset())

	key(tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, 10, v.ScrollOffset())

	key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, v.ScrollOffset())
}

func TestView_WrapsLongLines(t *testing.T) {
	text := strings.Repeat("word ", 40)

	v := openedView(t, domain.DocumentRecord{ID: "doc-1", RawText: text}, 44, 30)

	assert.Greater(t, v.LineCount(), 1)
}

func TestView_EscReturnsToOrigin(t *testing.T) {
	v := NewView(nil, &mockIndexService{})
	v.Open("doc-1", messages.ViewSearch)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewSearch}, cmd())
}
