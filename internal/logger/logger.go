// Package logger provides verbose logging for newsdesk.
// Messages are written to stderr only when the --verbose flag is set, so
// streamed answers and the TUI stay clean by default.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02T15:04:05.000"

var (
	mu         sync.RWMutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetTimestamps prefixes every line with the local time. Long-running
// servers enable it.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf holds the write lock so lines from concurrent runs never interleave.
func logf(level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	line := "[" + level + "] " + fmt.Sprintf(format, args...)
	if timestamps {
		line = now().Format(timestampFormat) + " " + line
	}
	fmt.Fprintln(output, line)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { logf("DEBUG", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { logf("INFO", format, args...) }

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) { logf("WARN", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scope prefixes every message with the name of what it concerns,
// such as a task run.
type Scope struct {
	prefix string
}

// For returns a scope whose messages start with "name: ".
func For(name string) Scope {
	return Scope{prefix: strings.ReplaceAll(name, "%", "%%") + ": "}
}

func (s Scope) Debug(format string, args ...any) { logf("DEBUG", s.prefix+format, args...) }
func (s Scope) Info(format string, args ...any)  { logf("INFO", s.prefix+format, args...) }
func (s Scope) Warn(format string, args ...any)  { logf("WARN", s.prefix+format, args...) }
