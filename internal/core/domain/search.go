package domain

// DefaultTopK is the number of hits returned when a query does not set one.
const DefaultTopK = 5

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of hits.
	TopK int

	// DocumentIDs restricts the query to these documents. Empty means all.
	DocumentIDs []string
}

// ScoreMethod names the scorer that produced a hit's raw score.
type ScoreMethod string

// Available score methods.
const (
	ScoreVector  ScoreMethod = "vector"
	ScoreKeyword ScoreMethod = "keyword"
)

// SearchHit is a single retrieval result.
type SearchHit struct {
	// DocumentID is the owning document.
	DocumentID string `json:"documentId"`

	// DocumentName is the owning document's name.
	DocumentName string `json:"documentName,omitempty"`

	// ChunkIndex is the chunk's sequence index within the document.
	ChunkIndex int `json:"chunkIndex"`

	// Score is the rank-fused score used for ordering.
	Score float64 `json:"score"`

	// RawScore is the scorer's own score (cosine or keyword overlap).
	RawScore float64 `json:"rawScore"`

	// Method is the scorer that ranked this chunk.
	Method ScoreMethod `json:"method"`

	// Text is the chunk content.
	Text string `json:"content"`
}
