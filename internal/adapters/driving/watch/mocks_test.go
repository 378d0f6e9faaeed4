package watch

import (
	"context"
	"sync"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// mockIndexService records calls in memory.
type mockIndexService struct {
	mu      sync.Mutex
	docs    map[string]domain.DocumentRecord
	removed []string
	stubs   int
	err     error
}

func newMockIndexService() *mockIndexService {
	return &mockIndexService{docs: make(map[string]domain.DocumentRecord)}
}

func (m *mockIndexService) Index(_ context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc.Status = domain.StatusIndexed
	m.docs[doc.ID] = doc
	return &doc, nil
}

func (m *mockIndexService) Search(_ context.Context, _ string, _ domain.SearchOptions) ([]domain.SearchHit, error) {
	return nil, nil
}

func (m *mockIndexService) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockIndexService) Get(_ context.Context, id string) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockIndexService) List(_ context.Context) ([]domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]domain.DocumentRecord, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *mockIndexService) RegisterStub(_ context.Context, name, docType, message string) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs++
	doc := domain.DocumentRecord{
		ID:      "stub-" + name,
		Name:    name,
		Type:    docType,
		Status:  domain.StatusError,
		Message: message,
	}
	m.docs[doc.ID] = doc
	return &doc, nil
}

func (m *mockIndexService) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *mockIndexService) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}
