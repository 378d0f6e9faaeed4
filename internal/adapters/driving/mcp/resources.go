package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

const (
	documentsURI      = "newsdesk://documents"
	documentURIPrefix = documentsURI + "/"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Documents in the newsroom index",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentURIPrefix + "{documentId}",
		Name:        "document-content",
		Description: "Full text of an indexed document, headed by its title, source URL and publication date",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		out[i] = documentOutput(docs[i])
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}
	return textResult(req.Params.URI, "application/json", string(data)), nil
}

func (s *Server) handleDocumentContentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id := extractDocumentID(uri)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	doc, err := s.ports.Index.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return textResult(uri, "text/plain", documentText(doc)), nil
}

// documentText heads the body with whatever provenance the record has.
// A document that failed to index has no body, only its error.
func documentText(doc *domain.DocumentRecord) string {
	if doc.Status == domain.StatusError {
		return fmt.Sprintf("%s was not indexed: %s", doc.Name, doc.Message)
	}

	var header []string
	if doc.Name != "" {
		header = append(header, "Title: "+doc.Name)
	}
	if doc.URL != "" {
		header = append(header, "Source: "+doc.URL)
	}
	if doc.PublishDate != "" {
		header = append(header, "Published: "+doc.PublishDate)
	}
	if len(header) == 0 {
		return doc.RawText
	}
	return strings.Join(header, "\n") + "\n\n" + doc.RawText
}

// extractDocumentID returns the unescaped id in newsdesk://documents/{id},
// or "" for any other URI.
func extractDocumentID(uri string) string {
	raw, ok := strings.CutPrefix(uri, documentURIPrefix)
	if !ok || raw == "" {
		return ""
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return ""
	}
	return id
}
