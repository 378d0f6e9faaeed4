package mcp

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	hits      []domain.SearchHit
	docs      []domain.DocumentRecord
	doc       *domain.DocumentRecord
	err       error
	indexed   []domain.DocumentRecord
	removed   []string
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockIndexService) Index(_ context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.indexed = append(m.indexed, doc)
	doc.Status = domain.StatusIndexed
	doc.ChunkCount = 1
	if doc.ID == "" {
		doc.ID = "generated"
	}
	return &doc, nil
}

func (m *mockIndexService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.hits, m.err
}

func (m *mockIndexService) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

func (m *mockIndexService) Get(_ context.Context, _ string) (*domain.DocumentRecord, error) {
	if m.doc == nil && m.err == nil {
		return nil, domain.ErrNotFound
	}
	return m.doc, m.err
}

func (m *mockIndexService) List(_ context.Context) ([]domain.DocumentRecord, error) {
	return m.docs, m.err
}

func (m *mockIndexService) RegisterStub(_ context.Context, name, docType, message string) (*domain.DocumentRecord, error) {
	return &domain.DocumentRecord{Name: name, Type: docType, Message: message, Status: domain.StatusError}, m.err
}

// mockRun replays a fixed list of events.
type mockRun struct {
	events    chan domain.Event
	state     domain.RunState
	cancelled bool
}

func newMockRun(state domain.RunState, events ...domain.Event) *mockRun {
	ch := make(chan domain.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &mockRun{events: ch, state: state}
}

func (m *mockRun) ID() string                   { return "run-1" }
func (m *mockRun) State() domain.RunState       { return m.state }
func (m *mockRun) Routing() domain.RoutingState { return domain.RoutingState{} }
func (m *mockRun) Events() <-chan domain.Event  { return m.events }
func (m *mockRun) Cancel()                      { m.cancelled = true }

// mockTaskService is a mock implementation of driving.TaskService.
type mockTaskService struct {
	run *mockRun
	err error
	req domain.TaskRequest
}

func (m *mockTaskService) Submit(_ context.Context, req domain.TaskRequest) (driving.Run, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.run, nil
}
