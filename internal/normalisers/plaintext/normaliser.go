// Package plaintext loads plain text and source-like files verbatim.
package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// DocType is the format label of plain text documents.
const DocType = "TEXT"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/yaml",
		"text/toml",
		"text/x-log",
		"application/json",
		"application/x-ndjson",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise returns the file content with line endings normalised.
// Content that is not valid UTF-8 is treated as binary and rejected.
func (n *Normaliser) Normalise(_ context.Context, file domain.SourceFile) (*domain.DocumentRecord, error) {
	if !utf8.Valid(file.Content) {
		return nil, fmt.Errorf("%s: binary content: %w", file.Path, domain.ErrUnsupportedFormat)
	}

	text := strings.ReplaceAll(string(file.Content), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	return &domain.DocumentRecord{
		Name:    domain.TitleFromPath(file.Path),
		Type:    DocType,
		RawText: strings.TrimSpace(text),
		Status:  domain.StatusPending,
	}, nil
}
