package driven

import "github.com/custodia-labs/newsdesk/internal/core/domain"

// Chunker splits document text into ordered, overlapping windows.
// Implementations are pure: the same text always yields the same windows.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk returns the windows of text in reading order.
	// Empty text yields no windows.
	Chunk(text string) []domain.Window
}
