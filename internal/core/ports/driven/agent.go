package driven

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// AgentRunner starts agent runs. The agent is an external collaborator:
// the engine only consumes the raw events it produces.
type AgentRunner interface {
	// Name returns the runner name for logging.
	Name() string

	// Start begins a run. The retriever lets the agent query the index
	// zero or more times while it runs.
	Start(ctx context.Context, req domain.AgentRequest, retriever Retriever) (EventFeed, error)
}

// EventFeed is an ordered sequence of opaque upstream events.
type EventFeed interface {
	// Next blocks until the next raw event is available.
	// Returns io.EOF once the feed is exhausted.
	Next(ctx context.Context) (domain.RawEvent, error)

	// Close releases the run's resources. Safe to call more than once.
	Close() error
}

// Retriever answers similarity queries on behalf of an agent run.
type Retriever interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)
}
