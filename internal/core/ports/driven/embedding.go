package driven

import "context"

// EmbeddingService turns text into a vector for semantic search. It is
// optional: without one the index ranks chunks by keyword overlap alone.
type EmbeddingService interface {
	// Embed returns the vector for text. The index bounds each call with
	// its embed timeout and falls back to keywords for that chunk on error.
	Embed(ctx context.Context, text string) ([]float32, error)

	ModelName() string

	// Ping makes the cheapest request the provider accepts.
	Ping(ctx context.Context) error

	Close() error
}
