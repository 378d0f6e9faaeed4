package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
)

// printer writes command output, styled only when the writer is a terminal.
type printer struct {
	out    io.Writer
	styles *styles.Styles
	styled bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{
		out:    w,
		styles: styles.NewStyles(nil),
		styled: isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *printer) title(text string) string   { return p.render(p.styles.Title, text) }
func (p *printer) muted(text string) string   { return p.render(p.styles.Muted, text) }
func (p *printer) success(text string) string { return p.render(p.styles.Success, text) }
func (p *printer) warning(text string) string { return p.render(p.styles.Warning, text) }
func (p *printer) failure(text string) string { return p.render(p.styles.Error, text) }

func (p *printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
