// Package tui provides an interactive terminal user interface for newsdesk.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Tasks submits agent runs.
	Tasks driving.TaskService

	// Index searches and manages indexed documents.
	Index driving.IndexService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(tasks driving.TaskService, index driving.IndexService) *Ports {
	return &Ports{
		Tasks: tasks,
		Index: index,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Tasks == nil {
		return ErrMissingTaskService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
