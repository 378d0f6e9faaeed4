package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

var (
	searchLimit int
	searchDocs  []string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Searches the retrieval index and prints the best matching chunks.
Ranks by semantic (vector) similarity when an embedding provider is
configured, and by keyword overlap otherwise.`,
	Args:        cobra.ExactArgs(1),
	Annotations: engineAnnotation,
	RunE:        runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchDocs, "doc", nil, "only search this document ID (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if indexService == nil {
		return errors.New("index service not configured")
	}

	opts := domain.SearchOptions{
		TopK:        searchLimit,
		DocumentIDs: searchDocs,
	}

	hits, err := indexService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, hits)
	}

	outputSearchTable(newPrinter(cmd.OutOrStdout()), hits)
	return nil
}

func outputSearchTable(p *printer, hits []domain.SearchHit) {
	if len(hits) == 0 {
		p.Println("No results found.")
		return
	}

	p.Println(p.title("Results:"))
	p.Println()
	for i := range hits {
		// Format: [N] Name (score method #chunk)
		name := hits[i].DocumentName
		if name == "" {
			name = hits[i].DocumentID
		}
		score := fmt.Sprintf("(%.3f %s #%d)", hits[i].Score, hits[i].Method, hits[i].ChunkIndex)

		p.Printf("  [%d] %s %s\n", i+1, name, p.muted(score))
		if snippet := strings.Join(strings.Fields(hits[i].Text), " "); snippet != "" {
			p.Printf("      %s\n", list.Truncate(snippet, 160))
		}
		p.Println()
	}
}
