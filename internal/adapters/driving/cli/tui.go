package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for Newsdesk.

The TUI streams agent runs with their stage progress and traces, searches
the index, and browses indexed documents.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Submit / Select
  Ctrl+X   - Stop the running task
  n        - New prompt
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	Args:        cobra.NoArgs,
	Annotations: engineAnnotation,
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if !isTerminal(os.Stdout) {
		return errors.New("the TUI needs a terminal; use 'newsdesk ask' instead")
	}

	app, err := tui.NewApp(tui.NewPorts(taskService, indexService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
