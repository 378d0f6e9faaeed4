package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view     ViewType
		expected string
	}{
		{ViewMenu, "menu"},
		{ViewAsk, "ask"},
		{ViewSearch, "search"},
		{ViewDocuments, "documents"},
		{ViewDocContent, "doc_content"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
		{ViewType(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.view.String())
		})
	}
}

func TestViewType_Ordering(t *testing.T) {
	assert.Equal(t, ViewType(0), ViewMenu)
	assert.Less(t, int(ViewMenu), int(ViewAsk))
	assert.Less(t, int(ViewDocContent), int(ViewHelp))
}

func TestSearchCompleted(t *testing.T) {
	t.Run("with hits", func(t *testing.T) {
		msg := SearchCompleted{Hits: []domain.SearchHit{
			{DocumentID: "doc-1", Score: 0.9},
			{DocumentID: "doc-2", Score: 0.4},
		}}
		require.Len(t, msg.Hits, 2)
		assert.NoError(t, msg.Err)
	})

	t.Run("with error", func(t *testing.T) {
		msg := SearchCompleted{Err: errors.New("index unavailable")}
		assert.Nil(t, msg.Hits)
		assert.EqualError(t, msg.Err, "index unavailable")
	})
}

func TestRunEvent(t *testing.T) {
	msg := RunEvent{RunID: "run-1", Event: domain.TextDeltaEvent("hello")}

	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, domain.KindTextDelta, msg.Event.Kind)
	assert.Equal(t, "hello", msg.Event.Text)
}

func TestRunFinished(t *testing.T) {
	msg := RunFinished{RunID: "run-1", State: domain.RunCompleted}
	assert.True(t, msg.State.IsFinal())
}

func TestDocumentMessages(t *testing.T) {
	t.Run("content loaded", func(t *testing.T) {
		doc := &domain.DocumentRecord{ID: "doc-1", RawText: "body"}
		msg := DocumentContentLoaded{Document: doc}
		assert.Equal(t, "body", msg.Document.RawText)
	})

	t.Run("removed with error", func(t *testing.T) {
		msg := DocumentRemoved{ID: "doc-1", Err: domain.ErrNotFound}
		assert.ErrorIs(t, msg.Err, domain.ErrNotFound)
	})
}
