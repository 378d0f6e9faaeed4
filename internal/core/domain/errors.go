package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates invalid configuration, such as chunk overlap
	// not smaller than the window size. Fatal at startup, never retried.
	ErrConfig = errors.New("configuration error")

	// ErrEmbeddingUnavailable indicates the embedding gateway could not
	// produce a vector. Recovered locally through keyword scoring.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrUnsupportedFormat indicates no loader can extract text from a file.
	// The file is recorded as an error stub instead of being indexed.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrTooLarge indicates a document exceeds the configured chunk limit.
	// The ingestion is rejected rather than silently truncated.
	ErrTooLarge = errors.New("document too large")

	// Task run errors. Each one is terminal for the run.

	// ErrUpstreamFeed indicates the agent run collaborator failed.
	ErrUpstreamFeed = errors.New("upstream feed error")

	// ErrSchemaValidation indicates the final artifact is malformed.
	ErrSchemaValidation = errors.New("artifact schema validation failed")

	// ErrTimeout indicates the task run exceeded its overall deadline.
	ErrTimeout = errors.New("task timed out")

	// ErrCancelled indicates the caller abandoned the run.
	ErrCancelled = errors.New("task cancelled")
)

// ErrorCode is the stable wire identifier of a terminal failure.
type ErrorCode string

// Terminal error codes.
const (
	CodeUpstreamFeed     ErrorCode = "upstream_feed"
	CodeTimeout          ErrorCode = "timeout"
	CodeSchemaValidation ErrorCode = "schema_validation"
	CodeCancelled        ErrorCode = "cancelled"
	CodeInvalidInput     ErrorCode = "invalid_input"
)

// CodeFor maps an error to its wire code. Unknown errors are upstream failures.
func CodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrSchemaValidation):
		return CodeSchemaValidation
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeUpstreamFeed
	}
}
