package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// Ensure TaskService implements the interface.
var _ driving.TaskService = (*TaskService)(nil)

const (
	defaultTaskTimeout     = 5 * time.Minute
	defaultEventBuffer     = 64
	indexStepID            = "index"
	indexRejectedTraceKind = "index_rejected"
	emptyScopeTraceKind    = "scope_empty"
	prepareConcurrency     = 4
)

// TaskService runs agent tasks. Each submitted task gets its own run with
// its own stage tracker and normaliser; the retrieval index is the only
// state runs share.
type TaskService struct {
	index  driving.IndexService
	runner driven.AgentRunner

	timeout       time.Duration
	traceMaxLen   int
	newsDiscovery bool
	bufferSize    int

	background sync.WaitGroup
}

// TaskOption configures the task service.
type TaskOption func(*TaskService)

// WithTaskTimeout bounds every run from submission to terminal event.
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(s *TaskService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTraceMaxLen sets the character bound of trace payload fields.
func WithTraceMaxLen(n int) TaskOption {
	return func(s *TaskService) {
		s.traceMaxLen = n
	}
}

// WithNewsDiscovery toggles discovery of news sections in streamed text.
func WithNewsDiscovery(enabled bool) TaskOption {
	return func(s *TaskService) {
		s.newsDiscovery = enabled
	}
}

// WithEventBuffer sets the capacity of each run's event channel.
func WithEventBuffer(n int) TaskOption {
	return func(s *TaskService) {
		if n >= 0 {
			s.bufferSize = n
		}
	}
}

// NewTaskService creates a task service.
func NewTaskService(index driving.IndexService, runner driven.AgentRunner, opts ...TaskOption) *TaskService {
	s := &TaskService{
		index:         index,
		runner:        runner,
		timeout:       defaultTaskTimeout,
		traceMaxLen:   DefaultTraceMaxLen,
		newsDiscovery: true,
		bufferSize:    defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates req and starts a run. Cancelling ctx cancels the run.
func (s *TaskService) Submit(ctx context.Context, req domain.TaskRequest) (driving.Run, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("submit task: %w: message is required", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	tracker := NewStageTracker()
	id := uuid.NewString()
	r := &taskRun{
		id:      id,
		events:  make(chan domain.Event, s.bufferSize),
		ctx:     runCtx,
		cancel:  cancel,
		tracker: tracker,
		norm:    NewEventNormalizer(tracker, s.traceMaxLen),
		log:     logger.For("run " + id),
		state:   domain.RunRunning,
	}

	r.log.Debug("started (%d refs, %d inline documents)", len(req.DocumentRefs), len(req.Documents))
	go s.execute(r, req)
	return r, nil
}

// Wait blocks until background indexing of discovered documents finishes.
func (s *TaskService) Wait() {
	s.background.Wait()
}

func (s *TaskService) execute(r *taskRun, req domain.TaskRequest) {
	defer close(r.events)
	defer r.cancel()

	taskCtx, cancel := context.WithTimeoutCause(r.ctx, s.timeout, domain.ErrTimeout)
	defer cancel()

	docIDs, docs, err := s.prepareDocuments(taskCtx, r, req)
	if err != nil {
		r.fail(s.runError(taskCtx, r, err))
		return
	}

	retriever := &scopedRetriever{
		index:       s.index,
		documentIDs: docIDs,
		scoped:      len(req.Documents) > 0 || len(req.DocumentRefs) > 0,
	}
	feed, err := s.runner.Start(taskCtx, domain.AgentRequest{
		RunID:       r.id,
		Message:     req.Message,
		DocumentIDs: docIDs,
		Documents:   docs,
	}, retriever)
	if err != nil {
		r.fail(s.runError(taskCtx, r, fmt.Errorf("%w: start %s: %w", domain.ErrUpstreamFeed, s.runner.Name(), err)))
		return
	}
	if s.newsDiscovery {
		feed = NewNewsDiscoveryFeed(feed, s.indexDiscovered)
	}
	defer func() {
		if err := feed.Close(); err != nil {
			r.log.Debug("close feed: %v", err)
		}
	}()

	for {
		raw, err := feed.Next(taskCtx)
		if errors.Is(err, io.EOF) {
			r.finish(r.norm.Finalize())
			return
		}
		if err != nil {
			r.fail(s.runError(taskCtx, r, err))
			return
		}

		ev := r.norm.Normalize(raw)
		switch {
		case ev.Kind == domain.KindUnclassified:
			continue
		case ev.IsTerminal():
			r.finish(ev)
			return
		}
		if !r.emit(ev) {
			r.markCancelled()
			return
		}
	}
}

// runError maps a failure to the error reported on the terminal event.
// It returns nil when the run was cancelled by the caller.
func (s *TaskService) runError(taskCtx context.Context, r *taskRun, err error) error {
	switch {
	case r.ctx.Err() != nil:
		return nil
	case errors.Is(context.Cause(taskCtx), domain.ErrTimeout):
		return fmt.Errorf("%w after %s", domain.ErrTimeout, s.timeout)
	case errors.Is(err, domain.ErrUpstreamFeed):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstreamFeed, err)
	}
}

// prepareDocuments indexes inline documents and resolves references.
// It returns the ids and records the agent may use.
func (s *TaskService) prepareDocuments(ctx context.Context, r *taskRun, req domain.TaskRequest) ([]string, []domain.DocumentRecord, error) {
	if len(req.Documents) == 0 && len(req.DocumentRefs) == 0 {
		return nil, nil, nil
	}

	r.tracker.Advance(domain.StageAnalyze)
	if !r.emit(r.norm.routing(domain.RoutingUpdate{ID: indexStepID, Label: "Indexing documents", Status: "running"})) {
		return nil, nil, r.ctx.Err()
	}

	indexed := make([]*domain.DocumentRecord, len(req.Documents))
	rejected := make([]error, len(req.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareConcurrency)
	for i, d := range req.Documents {
		g.Go(func() error {
			rec, err := s.index.Index(gctx, domain.DocumentRecord{
				ID:         d.ID,
				Name:       d.Name,
				Type:       d.Type,
				RawText:    d.Text,
				SourceKind: domain.SourceUploaded,
			})
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				rejected[i] = err
				return nil
			}
			indexed[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	var docs []domain.DocumentRecord
	add := func(rec domain.DocumentRecord) {
		if seen[rec.ID] {
			return
		}
		seen[rec.ID] = true
		ids = append(ids, rec.ID)
		docs = append(docs, rec)
	}

	for i, d := range req.Documents {
		if err := rejected[i]; err != nil {
			r.log.Warn("document %q rejected: %v", d.Name, err)
			if !r.emit(s.rejectedTrace(d, err)) {
				return nil, nil, r.ctx.Err()
			}
			continue
		}
		add(*indexed[i])
	}

	for _, id := range req.DocumentRefs {
		rec, err := s.index.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			r.log.Debug("unknown document %s excluded", id)
			continue
		case err != nil:
			return nil, nil, err
		case rec.Status != domain.StatusIndexed:
			r.log.Debug("document %s is %s, excluded", id, rec.Status)
			continue
		}
		add(*rec)
	}

	if len(ids) == 0 {
		r.log.Warn("none of %d requested documents is usable", len(req.Documents)+len(req.DocumentRefs))
		if !r.emit(s.emptyScopeTrace(req)) {
			return nil, nil, r.ctx.Err()
		}
	}

	if !r.emit(r.norm.routing(domain.RoutingUpdate{ID: indexStepID, Label: "Indexing documents", Status: "done"})) {
		return nil, nil, r.ctx.Err()
	}
	return ids, docs, nil
}

func (s *TaskService) rejectedTrace(d domain.InlineDocument, err error) domain.Event {
	trace := domain.TraceEvent{Kind: indexRejectedTraceKind, Payload: map[string]string{}}
	fields := map[string]string{"id": d.ID, "document": d.Name, "error": err.Error()}
	for key, value := range fields {
		if value == "" {
			continue
		}
		cut, truncated := truncateField(value, s.traceMaxLen)
		trace.Payload[key] = cut
		trace.Truncated = trace.Truncated || truncated
	}
	return domain.TraceEventOf(trace)
}

func (s *TaskService) emptyScopeTrace(req domain.TaskRequest) domain.Event {
	return domain.TraceEventOf(domain.TraceEvent{
		Kind: emptyScopeTraceKind,
		Payload: map[string]string{
			"requested": strconv.Itoa(len(req.Documents) + len(req.DocumentRefs)),
		},
	})
}

// indexDiscovered indexes a discovered document in the background.
// Indexing is document scoped and outlives the run that found it.
func (s *TaskService) indexDiscovered(doc domain.DocumentRecord) {
	if doc.RawText == "" {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.index.Index(ctx, doc); err != nil {
			logger.Warn("Failed to index discovered document %s: %v", doc.ID, err)
		}
	}()
}

// scopedRetriever defaults searches to the run's document set. A run
// that asked for documents never widens to the whole index, even when
// none of them could be used.
type scopedRetriever struct {
	index       driving.IndexService
	documentIDs []string
	scoped      bool
}

func (r *scopedRetriever) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	if len(opts.DocumentIDs) == 0 {
		if r.scoped && len(r.documentIDs) == 0 {
			return nil, nil
		}
		opts.DocumentIDs = r.documentIDs
	}
	return r.index.Search(ctx, query, opts)
}

// taskRun is one run. Only the execute goroutine sends on events.
type taskRun struct {
	id      string
	events  chan domain.Event
	ctx     context.Context
	cancel  context.CancelFunc
	tracker *StageTracker
	norm    *EventNormalizer
	log     logger.Scope

	mu    sync.Mutex
	state domain.RunState
}

func (r *taskRun) ID() string { return r.id }

func (r *taskRun) State() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *taskRun) Routing() domain.RoutingState {
	return r.tracker.State()
}

func (r *taskRun) Events() <-chan domain.Event {
	return r.events
}

func (r *taskRun) Cancel() {
	r.markCancelled()
	r.cancel()
}

// emit delivers ev unless the run was cancelled.
func (r *taskRun) emit(ev domain.Event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// finish delivers the single terminal event.
func (r *taskRun) finish(ev domain.Event) {
	next := domain.RunFailed
	if ev.Terminal != nil && ev.Terminal.Success {
		next = domain.RunCompleted
	}
	if !r.transition(next) {
		return
	}
	if ev.Terminal.Success {
		r.log.Debug("completed")
	} else {
		r.log.Debug("failed (%s): %s", ev.Terminal.Code, ev.Terminal.Error)
	}
	r.emit(ev)
}

// fail finishes with err, or marks the run cancelled when err is nil.
func (r *taskRun) fail(err error) {
	if err == nil {
		r.markCancelled()
		return
	}
	r.finish(domain.FailureEvent(err))
}

func (r *taskRun) markCancelled() {
	if r.transition(domain.RunCancelled) {
		r.log.Debug("cancelled")
	}
}

func (r *taskRun) transition(next domain.RunState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.IsFinal() {
		return false
	}
	r.state = next
	return true
}
