package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// SourceKind describes how a document entered the system.
type SourceKind string

// Available source kinds.
const (
	// SourceUploaded is a document supplied by the caller.
	SourceUploaded SourceKind = "uploaded"

	// SourcePreloaded is a document loaded from the preload directory at startup.
	SourcePreloaded SourceKind = "preloaded"

	// SourceGenerated is a document discovered or produced during a task run.
	SourceGenerated SourceKind = "generated"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceUploaded, SourcePreloaded, SourceGenerated:
		return true
	default:
		return false
	}
}

// DocumentStatus is the indexing state of a document.
type DocumentStatus string

// Available document statuses.
const (
	StatusPending DocumentStatus = "pending"
	StatusIndexed DocumentStatus = "indexed"
	StatusError   DocumentStatus = "error"
)

// DocumentRecord is a document owned by the retrieval index.
// It is also the payload of a DocumentDiscovered event.
type DocumentRecord struct {
	// ID is the unique identifier, stable across re-indexing.
	ID string `json:"id"`

	// Name is the human-readable title.
	Name string `json:"name"`

	// SourceKind records how the document entered the system.
	SourceKind SourceKind `json:"sourceKind"`

	// Type is a free-form format label (TEXT, PDF, NEWS).
	Type string `json:"type,omitempty"`

	// RawText is the full text before chunking.
	RawText string `json:"content,omitempty"`

	// Status is the indexing state.
	Status DocumentStatus `json:"status"`

	// Message explains an error or unsupported status.
	Message string `json:"message,omitempty"`

	// Preview is the leading text of the first chunk.
	Preview string `json:"preview,omitempty"`

	// ContentHash is the md5 of RawText, used to skip identical re-indexing.
	ContentHash string `json:"-"`

	// ChunkCount is the number of chunks currently indexed.
	ChunkCount int `json:"chunkCount,omitempty"`

	// URL is the origin of a discovered document, if any.
	URL string `json:"url,omitempty"`

	// PublishDate is the publication date of a discovered news document.
	PublishDate string `json:"publishDate,omitempty"`

	// UpdatedAt is when the document was last indexed.
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Chunk is a bounded, overlapping slice of a document's text.
type Chunk struct {
	// DocumentID links to the owning DocumentRecord.
	DocumentID string

	// Sequence is the 0-based reading-order position within the document.
	Sequence int

	// Text is the chunk content.
	Text string

	// OverlapWithPrevious is the number of leading characters shared
	// with the previous chunk. Always 0 for the first chunk.
	OverlapWithPrevious int

	// Embedding is the vector representation, nil when the embedding
	// gateway was unavailable. A chunk without a vector stays retrievable
	// through keyword scoring.
	Embedding []float32
}

// HasEmbedding returns true if the chunk carries a usable vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Window is one output window of a chunker, before it is bound to a document.
type Window struct {
	// Sequence is the 0-based window position.
	Sequence int

	// Text is the window content.
	Text string

	// Overlap is the number of leading characters shared with the previous window.
	Overlap int
}

// IndexedDocument is a document together with its current chunk set.
type IndexedDocument struct {
	Document DocumentRecord
	Chunks   []Chunk
}

// SourceFile is a file read from disk, before text extraction.
type SourceFile struct {
	// Path is the file path as given by the caller.
	Path string

	// MIMEType is the detected content type.
	MIMEType string

	// Content is the raw file bytes.
	Content []byte
}

// TitleFromPath derives a human-readable document name from a file path.
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
