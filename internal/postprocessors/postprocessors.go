// Package postprocessors builds the text processors that run after a
// document has been normalised to plain text.
package postprocessors

import (
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/postprocessors/chunker"
)

// NewChunker returns the window chunker for settings. A zero window size
// keeps the chunker default; an explicit overlap, zero included, is
// always applied once a window size is set.
func NewChunker(settings domain.ChunkerSettings) (driven.Chunker, error) {
	var opts []chunker.Option
	if settings.WindowSize != 0 {
		opts = append(opts,
			chunker.WithWindowSize(settings.WindowSize),
			chunker.WithOverlap(settings.Overlap),
		)
	}
	return chunker.New(opts...)
}
