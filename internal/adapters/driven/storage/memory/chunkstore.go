package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ErrAlreadyInitialized is returned when Initialize is called twice.
var ErrAlreadyInitialized = errors.New("chunk store already initialized")

// entry is an immutable document version. Writers build a new entry and
// swap the map slot; readers holding the old pointer keep a consistent view.
type entry struct {
	doc    domain.DocumentRecord
	chunks []domain.Chunk
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	initialized bool
}

// NewChunkStore creates a new in-memory chunk store.
// Initialize must be called once before the store is shared.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		entries: make(map[string]*entry),
	}
}

// Initialize prepares the store. With clearOnStart any existing entries
// are dropped. It may only be called once per store.
func (s *ChunkStore) Initialize(_ context.Context, clearOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true

	if clearOnStart {
		s.entries = make(map[string]*entry)
	}
	return nil
}

// Put stores a document and replaces its chunk set in one step.
func (s *ChunkStore) Put(_ context.Context, doc domain.DocumentRecord, chunks []domain.Chunk) error {
	e := &entry{
		doc:    doc,
		chunks: append([]domain.Chunk(nil), chunks...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[doc.ID] = e
	return nil
}

// Get retrieves a document by ID.
func (s *ChunkStore) Get(_ context.Context, id string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := e.doc
	return &doc, nil
}

// Delete removes a document and its chunks.
func (s *ChunkStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// List returns every stored document ordered by ID.
func (s *ChunkStore) List(_ context.Context) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	docs := make([]domain.DocumentRecord, 0, len(s.entries))
	for _, e := range s.entries {
		docs = append(docs, e.doc)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Snapshot returns the current version of the given documents.
// The returned chunk slices are shared and must not be modified.
func (s *ChunkStore) Snapshot(_ context.Context, ids []string) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	var picked []*entry
	if len(ids) == 0 {
		picked = make([]*entry, 0, len(s.entries))
		for _, e := range s.entries {
			picked = append(picked, e)
		}
	} else {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if e, ok := s.entries[id]; ok {
				picked = append(picked, e)
			}
		}
	}
	s.mu.RUnlock()

	out := make([]domain.IndexedDocument, 0, len(picked))
	for _, e := range picked {
		out = append(out, domain.IndexedDocument{Document: e.doc, Chunks: e.chunks})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document.ID < out[j].Document.ID })
	return out, nil
}

// Len returns the number of stored documents.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
