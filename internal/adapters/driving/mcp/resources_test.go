package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "newsdesk://documents/doc-456",
			expected: "doc-456",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/doc-456",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
		{
			name:     "missing id",
			uri:      "newsdesk://documents/",
			expected: "",
		},
		{
			name:     "escaped id",
			uri:      "newsdesk://documents/news%2F2024-05-01",
			expected: "news/2024-05-01",
		},
		{
			name:     "bad escape",
			uri:      "newsdesk://documents/%zz",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractDocumentID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists documents", func(t *testing.T) {
		index := &mockIndexService{docs: []domain.DocumentRecord{
			{ID: "doc-1", Name: "Budget vote", Status: domain.StatusIndexed, ChunkCount: 3},
		}}
		server, err := NewServer(&Ports{Index: index})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("newsdesk://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"id": "doc-1"`)
		assert.Contains(t, result.Contents[0].Text, `"chunk_count": 3`)
	})

	t.Run("empty index", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("newsdesk://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{err: errors.New("store closed")}})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("newsdesk://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content", func(t *testing.T) {
		index := &mockIndexService{doc: &domain.DocumentRecord{ID: "doc-1", RawText: "Full text"}}
		server, err := NewServer(&Ports{Index: index})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://documents/doc-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "Full text", result.Contents[0].Text)
	})

	t.Run("discovered document has provenance header", func(t *testing.T) {
		index := &mockIndexService{doc: &domain.DocumentRecord{
			ID:          "news-1",
			Name:        "Budget passes",
			URL:         "https://example.com/budget",
			PublishDate: "2024-05-01",
			RawText:     "The council approved the budget.",
			Status:      domain.StatusIndexed,
		}}
		server, err := NewServer(&Ports{Index: index})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://documents/news-1"))

		require.NoError(t, err)
		assert.Equal(t, "Title: Budget passes\nSource: https://example.com/budget\nPublished: 2024-05-01\n\nThe council approved the budget.",
			result.Contents[0].Text)
	})

	t.Run("stub reports its error", func(t *testing.T) {
		index := &mockIndexService{doc: &domain.DocumentRecord{
			ID: "stub", Name: "scan.pdf", Status: domain.StatusError, Message: "unsupported format",
		}}
		server, err := NewServer(&Ports{Index: index})
		require.NoError(t, err)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://documents/stub"))

		require.NoError(t, err)
		assert.Equal(t, "scan.pdf was not indexed: unsupported format", result.Contents[0].Text)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://invalid"))
		require.Error(t, err)
	})

	t.Run("unknown document returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://documents/missing"))
		require.Error(t, err)
	})

	t.Run("store error", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{err: errors.New("boom")}})
		require.NoError(t, err)

		_, err = server.handleDocumentContentResource(ctx, makeReadResourceRequest("newsdesk://documents/doc-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document")
	})
}
