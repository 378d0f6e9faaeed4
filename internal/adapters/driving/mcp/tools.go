package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/services"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"what to look for in the indexed documents"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these document ids"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
	Method       string  `json:"method"`
	Content      string  `json:"content"`
}

// IndexInput is the input schema for the index_document tool.
type IndexInput struct {
	ID   string `json:"id,omitempty" jsonschema:"stable document id; re-indexing the same id replaces the document"`
	Name string `json:"name" jsonschema:"document title"`
	Text string `json:"text" jsonschema:"full document text"`
	Type string `json:"type,omitempty" jsonschema:"format label such as TEXT or NEWS"`
	URL  string `json:"url,omitempty" jsonschema:"origin of the document"`
}

// DocumentOutput describes an indexed document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Preview    string `json:"preview,omitempty"`
}

// RemoveInput is the input schema for the remove_document tool.
type RemoveInput struct {
	ID string `json:"id" jsonschema:"id of the document to remove"`
}

// RemoveOutput is the output schema for the remove_document tool.
type RemoveOutput struct {
	Removed string `json:"removed"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message     string   `json:"message" jsonschema:"question or instruction for the newsroom agent"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"indexed documents the agent should work from"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	RunID      string           `json:"run_id"`
	Success    bool             `json:"success"`
	Answer     string           `json:"answer,omitempty"`
	Sections   []string         `json:"sections,omitempty"`
	Error      string           `json:"error,omitempty"`
	Code       string           `json:"code,omitempty"`
	Discovered []DocumentOutput `json:"discovered,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the newsroom document index",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Add or replace a document in the newsroom index",
	}, s.handleIndex)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document from the newsroom index",
	}, s.handleRemove)

	if s.ports.Tasks != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Run the newsroom agent over indexed documents and return its answer",
		}, s.handleAsk)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	opts := domain.SearchOptions{TopK: topK, DocumentIDs: input.DocumentIDs}
	hits, err := s.ports.Index.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}

	for i := range hits {
		output.Results[i] = SearchResultOutput{
			DocumentID:   hits[i].DocumentID,
			DocumentName: hits[i].DocumentName,
			ChunkIndex:   hits[i].ChunkIndex,
			Score:        hits[i].Score,
			Method:       string(hits[i].Method),
			Content:      hits[i].Text,
		}
	}

	return nil, output, nil
}

// handleIndex handles the index_document tool invocation.
func (s *Server) handleIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.Name == "" || input.Text == "" {
		return nil, DocumentOutput{}, fmt.Errorf("%w: name and text are required", domain.ErrInvalidInput)
	}

	rec, err := s.ports.Index.Index(ctx, domain.DocumentRecord{
		ID:         input.ID,
		Name:       input.Name,
		Type:       input.Type,
		URL:        input.URL,
		RawText:    input.Text,
		SourceKind: domain.SourceUploaded,
	})
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	return nil, documentOutput(*rec), nil
}

// handleRemove handles the remove_document tool invocation.
func (s *Server) handleRemove(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveInput,
) (*mcp.CallToolResult, RemoveOutput, error) {
	if input.ID == "" {
		return nil, RemoveOutput{}, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if err := s.ports.Index.Remove(ctx, input.ID); err != nil {
		return nil, RemoveOutput{}, err
	}
	return nil, RemoveOutput{Removed: input.ID}, nil
}

// handleAsk runs a task to completion and reports its terminal outcome.
// A failed run is a tool result, not a protocol error.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	run, err := s.ports.Tasks.Submit(ctx, domain.TaskRequest{
		Message:      input.Message,
		DocumentRefs: input.DocumentIDs,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	result := services.CollectRun(ctx, run, nil)
	output := AskOutput{RunID: result.RunID}
	if ctx.Err() != nil {
		return nil, output, ctx.Err()
	}
	if result.Terminal == nil {
		return nil, output, errors.New("run ended without a result")
	}

	output.Success = result.Terminal.Success
	output.Error = result.Terminal.Error
	output.Code = string(result.Terminal.Code)
	if output.Success {
		output.Answer = result.Answer()
		output.Sections = result.Terminal.Artifact.Sections()
	}
	for _, doc := range result.Documents {
		output.Discovered = append(output.Discovered, documentOutput(doc))
	}

	return nil, output, nil
}

func documentOutput(doc domain.DocumentRecord) DocumentOutput {
	return DocumentOutput{
		ID:         doc.ID,
		Name:       doc.Name,
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		Preview:    doc.Preview,
	}
}
