package driving

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// TaskService runs agent tasks and streams their normalised events.
type TaskService interface {
	// Submit validates the request and starts a run. The returned run's
	// event channel is closed after at most one terminal event.
	Submit(ctx context.Context, req domain.TaskRequest) (Run, error)
}

// Run is the handle of one started task run.
type Run interface {
	// ID returns the run identifier.
	ID() string

	// State returns the current lifecycle state.
	State() domain.RunState

	// Routing returns a copy of the run's stage progress.
	Routing() domain.RoutingState

	// Events returns the ordered stream of normalised events.
	Events() <-chan domain.Event

	// Cancel abandons the run. No further events are delivered.
	Cancel()
}
