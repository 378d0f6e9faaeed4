package driven

import (
	"context"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// Normaliser extracts indexable text from a file.
// Each normaliser handles specific MIME types (e.g., HTML, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise returns a pending document record carrying the extracted
	// text in RawText and a name derived from the content or path.
	// ID and SourceKind are left for the caller to assign.
	Normalise(ctx context.Context, file domain.SourceFile) (*domain.DocumentRecord, error)
}

// NormaliserRegistry selects the appropriate normaliser for a file.
type NormaliserRegistry interface {
	// Normalise extracts text using the best matching normaliser.
	// Returns domain.ErrUnsupportedFormat when no normaliser matches.
	Normalise(ctx context.Context, file domain.SourceFile) (*domain.DocumentRecord, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
