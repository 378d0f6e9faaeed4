package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/core/services"
)

var (
	askDocs  []string
	askFiles []string
	askTUI   bool
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run an agent task",
	Long: `Runs one agent task and prints the answer.

Routing steps and tool traces are reported on stderr while the task runs.
The answer, any summary/translation/memo sections and discovered news
documents are printed on stdout when it completes.

Examples:
  newsdesk ask --preload ./notes "What happened at the council meeting?"
  newsdesk ask --file brief.pdf --file memo.docx "Summarise both and draft a memo"
  newsdesk ask --replay feed.jsonl --json "Any news?"`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: engineAnnotation,
	RunE:        runAsk,
}

func init() {
	askCmd.Flags().StringSliceVar(&askDocs, "doc", nil, "restrict retrieval to this document ID (repeatable)")
	askCmd.Flags().StringSliceVar(&askFiles, "file", nil, "index this file and attach it to the task (repeatable)")
	askCmd.Flags().BoolVar(&askTUI, "tui", false, "stream the run in the interactive interface")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print every event as a JSON line")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if taskService == nil {
		return errors.New("task service not configured")
	}

	ctx := cmd.Context()
	message := strings.Join(args, " ")

	refs := append([]string(nil), askDocs...)
	if len(askFiles) > 0 {
		ids, err := indexFiles(ctx, cmd, askFiles)
		if err != nil {
			return err
		}
		refs = append(refs, ids...)
	}

	if askTUI {
		return runAskTUI(ctx, message, refs)
	}

	run, err := taskService.Submit(ctx, domain.TaskRequest{
		Message:      message,
		DocumentRefs: refs,
	})
	if err != nil {
		return fmt.Errorf("failed to start task: %w", err)
	}

	if askJSON {
		return streamJSON(ctx, cmd, run)
	}

	progress := newPrinter(cmd.ErrOrStderr())
	result := services.CollectRun(ctx, run, func(ev domain.Event) {
		printProgress(progress, ev)
	})
	return printResult(newPrinter(cmd.OutOrStdout()), result)
}

// indexFiles ingests files as uploaded documents and returns the IDs of
// those that were indexed.
func indexFiles(ctx context.Context, cmd *cobra.Command, paths []string) ([]string, error) {
	if ingester == nil {
		return nil, errors.New("ingester not configured")
	}
	p := newPrinter(cmd.ErrOrStderr())
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		doc, err := ingester.IngestFile(ctx, path, domain.SourceUploaded)
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", path, err)
		}
		if doc.Status == domain.StatusError {
			p.Printf("%s %s: %s\n", p.warning("skipped"), path, doc.Message)
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func runAskTUI(ctx context.Context, message string, refs []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(taskService, indexService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(ctx).WithPrompt(message, refs).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// streamJSON prints each event as one JSON line. A failed run is reported
// by its terminal event, not as a command error.
func streamJSON(ctx context.Context, cmd *cobra.Command, run driving.Run) error {
	out := cmd.OutOrStdout()
	var encodeErr error
	services.CollectRun(ctx, run, func(ev domain.Event) {
		if encodeErr != nil {
			return
		}
		data, err := json.Marshal(ev)
		if err != nil {
			encodeErr = fmt.Errorf("failed to encode %s event: %w", ev.Kind, err)
			run.Cancel()
			return
		}
		fmt.Fprintln(out, string(data))
	})
	return encodeErr
}

func printProgress(p *printer, ev domain.Event) {
	switch ev.Kind {
	case domain.KindRoutingUpdate:
		r := ev.Routing
		line := fmt.Sprintf("→ %s (%s)", r.Label, r.Status)
		if r.ETA != "" {
			line += " eta " + r.ETA
		}
		p.Println(p.muted(line))
	case domain.KindTraceEvent:
		p.Println(p.muted("  ⚙ " + ask.FormatTrace(*ev.Trace, 120)))
	case domain.KindDocumentDiscovered:
		p.Println(p.muted("  + " + ev.Document.Name))
	}
}

func printResult(p *printer, result services.RunResult) error {
	switch {
	case result.State == domain.RunCancelled:
		return errors.New("task cancelled")
	case result.Terminal == nil:
		return fmt.Errorf("task %s ended without a result", result.RunID)
	case !result.Terminal.Success:
		return fmt.Errorf("task failed (%s): %s", result.Terminal.Code, result.Terminal.Error)
	}

	if answer := result.Answer(); answer != "" {
		p.Println(answer)
	}

	if artifact := result.Terminal.Artifact; artifact != nil {
		for _, name := range artifact.Sections() {
			p.Println()
			p.Println(p.title(strings.ToUpper(name[:1]) + name[1:]))
			p.Println(formatSection(sectionBody(artifact, name)))
		}
	}

	if len(result.Documents) > 0 {
		p.Println()
		p.Println(p.title(fmt.Sprintf("Discovered (%d)", len(result.Documents))))
		for i := range result.Documents {
			doc := &result.Documents[i]
			line := "  " + doc.Name
			if doc.PublishDate != "" {
				line += " " + p.muted(doc.PublishDate)
			}
			p.Println(line)
			if doc.URL != "" {
				p.Println("    " + p.muted(doc.URL))
			}
		}
	}
	return nil
}

func sectionBody(a *domain.Artifact, name string) json.RawMessage {
	switch name {
	case "summary":
		return a.Summary
	case "translation":
		return a.Translation
	case "memo":
		return a.Memo
	}
	return nil
}

// formatSection indents a section's JSON body for display.
func formatSection(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(data)
}
