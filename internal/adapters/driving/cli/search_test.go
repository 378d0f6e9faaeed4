package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func resetSearchFlags() {
	searchLimit, searchDocs, searchJSON = 10, nil, false
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search indexed documents", searchCmd.Short)
}

func TestSearchCmd_Long(t *testing.T) {
	assert.Contains(t, searchCmd.Long, "semantic")
	assert.Contains(t, searchCmd.Long, "keyword")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetSearchFlags()

	out, err := execute(t, "search", "budget")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] council.md (0.870 vector #2)")
	assert.Contains(t, out, "The council approved the budget.")
	assert.Equal(t, 10, testIndex.opts.TopK)
}

func TestSearchCmd_PassesLimitAndDocuments(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetSearchFlags()

	_, err := execute(t, "search", "-n", "3", "--doc", "doc-1", "budget")

	require.NoError(t, err)
	assert.Equal(t, domain.SearchOptions{TopK: 3, DocumentIDs: []string{"doc-1"}}, testIndex.opts)
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer resetSearchFlags()

	out, err := execute(t, "search", "--json", "budget")

	require.NoError(t, err)
	assert.Contains(t, out, `"documentId": "doc-1"`)
	assert.Contains(t, out, `"score": 0.87`)
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	indexService = nil

	_, err := execute(t, "search", "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "index service not configured")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)

	outputSearchTable(newPrinter(buf), []domain.SearchHit{})

	assert.Contains(t, buf.String(), "No results found")
}

func TestOutputSearchTable_WithoutName(t *testing.T) {
	buf := new(bytes.Buffer)

	outputSearchTable(newPrinter(buf), []domain.SearchHit{
		{DocumentID: "doc-123", Score: 0.5, Method: "keyword"},
	})

	assert.Contains(t, buf.String(), "[1] doc-123 (0.500 keyword #0)")
}
