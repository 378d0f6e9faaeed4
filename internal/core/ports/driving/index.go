package driving

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// IndexService is the retrieval index: it owns documents and answers
// similarity queries over their chunks.
type IndexService interface {
	// Index chunks and embeds a document, then atomically replaces any
	// prior chunk set for its ID. Returns domain.ErrTooLarge when the
	// document exceeds the chunk limit; the prior state is kept.
	Index(ctx context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error)

	// Search returns the top hits for a query, ranked across vector and
	// keyword scoring.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)

	// Remove deletes a document. Removing an unknown document is not an error.
	Remove(ctx context.Context, id string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// List returns every document.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// RegisterStub records a document that could not be read. It has no
	// chunks and never appears in search results.
	RegisterStub(ctx context.Context, name, docType, message string) (*domain.DocumentRecord, error)
}
