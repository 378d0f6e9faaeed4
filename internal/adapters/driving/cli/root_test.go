package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/watch"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/normalisers"
)

// mockIndexService keeps documents in insertion order.
type mockIndexService struct {
	mu      sync.Mutex
	docs    []domain.DocumentRecord
	hits    []domain.SearchHit
	opts    domain.SearchOptions
	removed []string
}

func (m *mockIndexService) Index(_ context.Context, doc domain.DocumentRecord) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.Status = domain.StatusIndexed
	doc.ChunkCount = 1
	m.put(doc)
	return &doc, nil
}

func (m *mockIndexService) put(doc domain.DocumentRecord) {
	for i := range m.docs {
		if m.docs[i].ID == doc.ID {
			m.docs[i] = doc
			return
		}
	}
	m.docs = append(m.docs, doc)
}

func (m *mockIndexService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	return m.hits, nil
}

func (m *mockIndexService) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, id)
	for i := range m.docs {
		if m.docs[i].ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockIndexService) Get(_ context.Context, id string) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id {
			doc := m.docs[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIndexService) List(_ context.Context) ([]domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DocumentRecord(nil), m.docs...), nil
}

func (m *mockIndexService) RegisterStub(_ context.Context, name, docType, message string) (*domain.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := domain.DocumentRecord{
		ID:      "stub-" + name,
		Name:    name,
		Type:    docType,
		Status:  domain.StatusError,
		Message: message,
	}
	m.put(doc)
	return &doc, nil
}

// mockRun replays a fixed event list and then closes its channel.
type mockRun struct {
	mu        sync.Mutex
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

func (r *mockRun) ID() string                   { return "run-1" }
func (r *mockRun) Events() <-chan domain.Event  { return r.events }
func (r *mockRun) Routing() domain.RoutingState { return domain.RoutingState{} }

func (r *mockRun) State() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return domain.RunCancelled
	}
	return r.state
}

func (r *mockRun) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

// mockTaskService hands out a prepared run and records the request.
type mockTaskService struct {
	run *mockRun
	req domain.TaskRequest
	err error
}

func (m *mockTaskService) Submit(_ context.Context, req domain.TaskRequest) (driving.Run, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m.req = req
	return m.run, nil
}

// mockSettingsService stores raw values and returns defaults.
type mockSettingsService struct {
	settings domain.Settings
	values   map[string]any
	invalid  error
}

func (m *mockSettingsService) Get() (domain.Settings, error) {
	return m.settings, nil
}

func (m *mockSettingsService) Validate(domain.Settings) error {
	return m.invalid
}

func (m *mockSettingsService) Set(key string, value any) error {
	if key == "bogus" {
		return domain.ErrInvalidInput
	}
	m.values[key] = value
	return nil
}

var (
	testIndex    *mockIndexService
	testTasks    *mockTaskService
	testSettings *mockSettingsService
)

func successRun() *mockRun {
	artifact := &domain.Artifact{
		Assistant: []byte(`{"content":"The council approved the budget."}`),
		Summary:   []byte(`{"points":["budget approved"]}`),
	}
	return newMockRun(domain.RunCompleted,
		domain.RoutingEvent(domain.RoutingUpdate{ID: "plan", Label: "Planning", Status: "running"}),
		domain.TraceEventOf(domain.TraceEvent{Kind: "tool_call", Payload: map[string]string{"name": "search"}}),
		domain.TextDeltaEvent(`{"assistant":`),
		domain.DocumentEvent(domain.DocumentRecord{
			ID:          "news-1",
			Name:        "Budget passes",
			URL:         "https://example.com/budget",
			PublishDate: "2024-05-01",
			SourceKind:  domain.SourceGenerated,
		}),
		domain.SuccessEvent(artifact),
	)
}

// setupTestServices installs mocks for the package-level services and
// returns a function restoring the previous state.
func setupTestServices() func() {
	oldIndex, oldTasks, oldSettings, oldIngester := indexService, taskService, settingsService, ingester
	oldBootstrap, oldPreload := bootstrap, preloadDir

	testIndex = &mockIndexService{
		docs: []domain.DocumentRecord{
			{ID: "doc-1", Name: "council.md", Type: "Markdown", SourceKind: domain.SourceUploaded,
				Status: domain.StatusIndexed, ChunkCount: 3, RawText: "Council minutes", Preview: "Council minutes"},
			{ID: "doc-2", Name: "scan.pdf", Type: "PDF", Status: domain.StatusError, Message: "unsupported format"},
		},
		hits: []domain.SearchHit{
			{DocumentID: "doc-1", DocumentName: "council.md", ChunkIndex: 2, Score: 0.87, Method: "vector",
				Text: "The council   approved\nthe budget."},
		},
	}
	testTasks = &mockTaskService{run: successRun()}
	testSettings = &mockSettingsService{settings: domain.DefaultSettings(), values: map[string]any{}}

	SetServices(&Services{
		Index:    testIndex,
		Tasks:    testTasks,
		Settings: testSettings,
		Ingester: watch.NewIngester(testIndex, normalisers.NewDefaultRegistry()),
	})
	bootstrap = nil
	preloadDir = ""

	return func() {
		indexService, taskService, settingsService, ingester = oldIndex, oldTasks, oldSettings, oldIngester
		bootstrap, preloadDir = oldBootstrap, oldPreload
		rootCmd.SetArgs(nil)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "newsdesk", rootCmd.Use)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config", "no-config", "replay", "preload"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"ask", "index", "search", "remove", "document", "serve", "mcp", "tui", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestSetup_BootstrapsEngineOnce(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService, taskService = nil, nil

	var calls []Options
	bootstrap = func(_ context.Context, opts Options) (*Services, error) {
		calls = append(calls, opts)
		return &Services{Index: testIndex, Tasks: testTasks, Settings: testSettings}, nil
	}

	replayPath = "feed.jsonl"
	defer func() { replayPath = "" }()

	_, err := execute(t, "document", "list")
	require.NoError(t, err)
	_, err = execute(t, "document", "list")
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.True(t, calls[0].Engine)
	assert.Equal(t, "feed.jsonl", calls[0].ReplayPath)
}

func TestSetup_SettingsCommandSkipsEngine(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	var got Options
	bootstrap = func(_ context.Context, opts Options) (*Services, error) {
		got = opts
		return &Services{Settings: testSettings}, nil
	}

	_, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.False(t, got.Engine)
}

func TestSetup_VersionNeedsNoServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	bootstrap = func(context.Context, Options) (*Services, error) {
		return nil, errors.New("must not be called")
	}

	_, err := execute(t, "version")
	assert.NoError(t, err)
}

func TestSetup_BootstrapError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = nil

	bootstrap = func(context.Context, Options) (*Services, error) {
		return nil, domain.ErrConfig
	}

	_, err := execute(t, "search", "budget")
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestSetup_PreloadsDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "Alpha story about the harbour.")
	b := writeFile(t, dir, "b.md", "# Beta\n\nBeta story about the bridge.")
	preloadDir = dir

	out, err := execute(t, "document", "list")
	require.NoError(t, err)
	assert.Contains(t, out, watch.DocumentID(a))
	assert.Contains(t, out, watch.DocumentID(b))
	assert.Contains(t, out, "Name: Beta")
	assert.Contains(t, out, "preloaded")
}

func TestExecute_ClosesServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	closed := 0
	closeServices = func() { closed++ }
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, 1, closed)
	assert.Nil(t, closeServices)
}
