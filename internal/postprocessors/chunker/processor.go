// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"fmt"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// DefaultWindowSize is the default number of characters per window.
const DefaultWindowSize = 1200

// DefaultOverlap is the default number of characters shared by adjacent windows.
const DefaultOverlap = 200

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text into fixed-size overlapping windows.
// Sizes are measured in characters (runes), never bytes, so a window
// boundary cannot split a multi-byte character.
type Processor struct {
	windowSize int
	overlap    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindowSize sets the window size in characters.
func WithWindowSize(size int) Option {
	return func(p *Processor) {
		p.windowSize = size
	}
}

// WithOverlap sets the overlap between windows in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Returns domain.ErrConfig unless 0 <= overlap < windowSize.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", domain.ErrConfig, p.windowSize)
	}
	if p.overlap < 0 || p.overlap >= p.windowSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrConfig, p.overlap, p.windowSize)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// WindowSize returns the configured window size.
func (p *Processor) WindowSize() int {
	return p.windowSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text into windows. Each window after the first starts
// windowSize-overlap characters after the previous one; the last window
// may be shorter. Splitting stops at the first window that reaches the
// end of the text.
func (p *Processor) Chunk(text string) []domain.Window {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)
	step := p.windowSize - p.overlap

	windows := make([]domain.Window, 0, total/step+1)

	for start := 0; ; start += step {
		end := start + p.windowSize
		if end > total {
			end = total
		}

		overlap := 0
		if start > 0 {
			overlap = p.overlap
		}

		windows = append(windows, domain.Window{
			Sequence: len(windows),
			Text:     string(runes[start:end]),
			Overlap:  overlap,
		})

		if end == total {
			break
		}
	}

	return windows
}

// Reassemble joins windows back into the original text by dropping each
// window's overlapping prefix.
func Reassemble(windows []domain.Window) string {
	var out []rune
	for _, w := range windows {
		out = append(out, []rune(w.Text)[w.Overlap:]...)
	}
	return string(out)
}
