package driven

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// ChunkStore holds documents and their chunk sets.
// A document's chunk set is replaced as a whole: readers observe either
// the previous set or the new one, never a mix.
type ChunkStore interface {
	// Initialize prepares the store once per process. When clearOnStart
	// is true any existing state is dropped.
	Initialize(ctx context.Context, clearOnStart bool) error

	// Put stores a document and atomically replaces its chunks.
	Put(ctx context.Context, doc domain.DocumentRecord, chunks []domain.Chunk) error

	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// Delete removes a document and its chunks. Deleting an absent
	// document is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored document ordered by ID.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// Snapshot returns a point-in-time view of the given documents with
	// their chunks. Empty ids means every document. Unknown ids are skipped.
	Snapshot(ctx context.Context, ids []string) ([]domain.IndexedDocument, error)
}
