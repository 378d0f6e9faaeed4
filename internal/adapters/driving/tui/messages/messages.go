// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the prompt and streaming run view.
	ViewAsk
	// ViewSearch is the index search view.
	ViewSearch
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewDocContent shows a document's text.
	ViewDocContent
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewDocContent:
		return "doc_content"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// SearchCompleted carries index hits back to the model.
type SearchCompleted struct {
	Hits []domain.SearchHit
	Err  error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// RunStarted carries the handle of a submitted task run.
type RunStarted struct {
	Run driving.Run
	Err error
}

// RunEvent carries one normalised event of a run.
type RunEvent struct {
	RunID string
	Event domain.Event
}

// RunFinished signals that a run's event stream closed.
type RunFinished struct {
	RunID string
	State domain.RunState
}

// DocumentsLoaded carries the list of indexed documents.
type DocumentsLoaded struct {
	Documents []domain.DocumentRecord
	Err       error
}

// DocumentSelected signals a document was selected.
type DocumentSelected struct {
	DocumentID string
}

// DocumentContentLoaded carries a document fetched from the index.
type DocumentContentLoaded struct {
	Document *domain.DocumentRecord
	Err      error
}

// DocumentRemoved signals a document was removed from the index.
type DocumentRemoved struct {
	ID  string
	Err error
}

// AskRequested opens the ask view scoped to the given documents.
type AskRequested struct {
	DocumentRefs []string
}
