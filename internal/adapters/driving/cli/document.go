package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, view, or remove documents in the retrieval index.`,
}

var documentListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List indexed documents",
	Args:        cobra.NoArgs,
	Annotations: engineAnnotation,
	RunE:        runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:         "get [doc-id]",
	Short:       "Show document info",
	Args:        cobra.ExactArgs(1),
	Annotations: engineAnnotation,
	RunE:        runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:         "content [doc-id]",
	Short:       "Print document content",
	Args:        cobra.ExactArgs(1),
	Annotations: engineAnnotation,
	RunE:        runDocumentContent,
}

var documentRemoveCmd = &cobra.Command{
	Use:         "remove [doc-id]",
	Short:       "Remove a document from the index",
	Args:        cobra.ExactArgs(1),
	Annotations: engineAnnotation,
	RunE:        runDocumentRemove,
}

var removeCmd = &cobra.Command{
	Use:         "remove [doc-id]",
	Short:       "Remove a document from the index",
	Long:        `Removes a document and its chunks. Removing an unknown document is not an error.`,
	Args:        cobra.ExactArgs(1),
	Annotations: engineAnnotation,
	RunE:        runDocumentRemove,
}

var indexCmd = &cobra.Command{
	Use:   "index [file]...",
	Short: "Index files",
	Long: `Extracts text from each file and indexes it as an uploaded document.
Files in an unsupported format are recorded as error stubs.

Supported formats: plain text, Markdown, HTML, DOCX and EML.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: engineAnnotation,
	RunE:        runIndex,
}

var documentListJSON bool

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output documents as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(indexCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	docs, err := indexService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentListJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	p := newPrinter(cmd.OutOrStdout())
	p.Println(p.title("Documents:"))
	p.Println()
	for i := range docs {
		p.Printf("  %s\n", docs[i].ID)
		p.Printf("    Name: %s\n", docs[i].Name)
		p.Printf("    %s\n", p.muted(documentSummary(&docs[i])))
		p.Println()
	}

	p.Printf("Total: %d documents\n", len(docs))
	return nil
}

func documentSummary(doc *domain.DocumentRecord) string {
	parts := []string{doc.Type, string(doc.SourceKind)}
	if doc.Status == domain.StatusError {
		parts = append(parts, "error: "+doc.Message)
	} else {
		parts = append(parts, fmt.Sprintf("%d chunks", doc.ChunkCount))
	}
	return strings.Join(parts, " · ")
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	doc, err := indexService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:     %s\n", doc.Name)
	cmd.Printf("  Type:     %s\n", doc.Type)
	cmd.Printf("  Source:   %s\n", doc.SourceKind)
	cmd.Printf("  Status:   %s\n", doc.Status)
	if doc.Message != "" {
		cmd.Printf("  Message:  %s\n", doc.Message)
	}
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	if doc.URL != "" {
		cmd.Printf("  URL:      %s\n", doc.URL)
	}
	if doc.PublishDate != "" {
		cmd.Printf("  Date:     %s\n", doc.PublishDate)
	}
	if doc.Preview != "" {
		cmd.Printf("\n  %s\n", strings.Join(strings.Fields(doc.Preview), " "))
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	doc, err := indexService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(doc.RawText)
	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	cmd.Printf("Document %s removed from index.\n", args[0])
	return nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingester == nil {
		return errors.New("ingester not configured")
	}

	p := newPrinter(cmd.OutOrStdout())
	var failed int
	for _, path := range args {
		doc, err := ingester.IngestFile(cmd.Context(), path, domain.SourceUploaded)
		switch {
		case err != nil:
			failed++
			p.Printf("%s %s: %v\n", p.failure("failed"), path, err)
		case doc.Status == domain.StatusError:
			p.Printf("%s %s: %s\n", p.warning("skipped"), path, doc.Message)
		default:
			p.Printf("%s %s %s\n", p.success("indexed"), doc.ID, p.muted(fmt.Sprintf("(%s, %d chunks)", doc.Name, doc.ChunkCount)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", failed, len(args))
	}
	return nil
}
