package domain

import "strings"

// RunState is the lifecycle state of a task run.
type RunState string

// Available run states.
const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// IsFinal returns true once the run can no longer change state.
func (s RunState) IsFinal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// InlineDocument is caller-supplied text indexed before a run starts.
type InlineDocument struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Text string `json:"content"`
}

// TaskRequest is the ingress of a task run.
type TaskRequest struct {
	// Message is the user's question or instruction.
	Message string `json:"message"`

	// DocumentRefs are ids of documents already in the index.
	DocumentRefs []string `json:"documentRefs,omitempty"`

	// Documents are inline documents to index before the run.
	Documents []InlineDocument `json:"documents,omitempty"`
}

// Validate checks the request can start a run.
func (r TaskRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrInvalidInput
	}
	return nil
}

// AgentRequest is what the agent collaborator receives for one run.
type AgentRequest struct {
	// RunID identifies the run.
	RunID string

	// Message is the user's message.
	Message string

	// DocumentIDs is the run's candidate document set after indexing.
	DocumentIDs []string

	// Documents describes the candidate documents for prompt context.
	Documents []DocumentRecord
}
