package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// RunResult is the outcome of a run drained to completion.
type RunResult struct {
	RunID     string
	State     domain.RunState
	Text      string
	Terminal  *domain.Terminal
	Documents []domain.DocumentRecord
	Traces    []domain.TraceEvent
}

// Answer returns the artifact narrative, falling back to the streamed text.
func (r RunResult) Answer() string {
	if r.Terminal != nil && r.Terminal.Artifact != nil {
		if n := r.Terminal.Artifact.Narrative(); n != "" {
			return n
		}
	}
	return strings.TrimSpace(r.Text)
}

// CollectRun reads a run's events until its channel closes. onEvent, when
// set, sees every event first. The run is cancelled if ctx ends first.
func CollectRun(ctx context.Context, run driving.Run, onEvent func(domain.Event)) RunResult {
	result := RunResult{RunID: run.ID()}
	var text strings.Builder

	events := run.Events()
loop:
	for {
		select {
		case <-ctx.Done():
			run.Cancel()
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			if onEvent != nil {
				onEvent(ev)
			}
			switch ev.Kind {
			case domain.KindTextDelta:
				text.WriteString(ev.Text)
			case domain.KindDocumentDiscovered:
				result.Documents = append(result.Documents, *ev.Document)
			case domain.KindTraceEvent:
				result.Traces = append(result.Traces, *ev.Trace)
			case domain.KindTerminal:
				result.Terminal = ev.Terminal
			}
		}
	}

	result.Text = text.String()
	result.State = run.State()
	return result
}
