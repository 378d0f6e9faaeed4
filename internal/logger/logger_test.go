package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// capture routes output to a buffer with the given verbosity and restores
// the defaults when the test ends.
func capture(t *testing.T, v bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(v)
	t.Cleanup(func() {
		SetVerbose(false)
		SetTimestamps(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)

	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("test message %s", "arg") }, "[DEBUG] test message arg\n"},
		{"info", func() { Info("info message %d", 42) }, "[INFO] info message 42\n"},
		{"warn", func() { Warn("warning message") }, "[WARN] warning message\n"},
		{"section", func() { Section("Index Search") }, "\n=== Index Search ===\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log()
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuietWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("debug")
	Info("info")
	Warn("warn")
	Section("section")
	For("run 1").Warn("scoped")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestTimestamps(t *testing.T) {
	buf := capture(t, true)
	now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local) }
	SetTimestamps(true)

	Info("serving")

	if got, want := buf.String(), "2024-05-01T09:30:00.000 [INFO] serving\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScope(t *testing.T) {
	buf := capture(t, true)

	run := For("run 4f2a")
	run.Debug("started (%d refs)", 2)
	run.Info("indexed")
	run.Warn("rejected %q", "memo.docx")

	want := "[DEBUG] run 4f2a: started (2 refs)\n" +
		"[INFO] run 4f2a: indexed\n" +
		"[WARN] run 4f2a: rejected \"memo.docx\"\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScope_EscapesPercent(t *testing.T) {
	buf := capture(t, true)

	For("100%").Info("done")

	if got := buf.String(); got != "[INFO] 100%: done\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	buf := capture(t, true)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			For("run").Debug("concurrent %d", i)
			IsVerbose()
		}()
	}
	wg.Wait()

	if lines := strings.Count(buf.String(), "\n"); lines != 10 {
		t.Errorf("expected 10 lines, got %d", lines)
	}
}
