// Package ask provides the prompt and live run view for the TUI.
// It submits a task, follows the run's event stream and renders stage
// progress, tool traces, reasoning and the streamed answer as they arrive.
package ask

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// ErrNoTaskService is returned when the view has no task service.
var ErrNoTaskService = errors.New("task service is required")

// maxTraceLines bounds the trace log shown under the stage line.
const maxTraceLines = 6

// View is the ask view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	spinner   spinner.Model
	statusbar *status.Bar

	tasks driving.TaskService
	ctx   context.Context

	documentRefs []string

	run        driving.Run
	running    bool
	finalState domain.RunState
	routing    domain.RoutingState
	steps      []domain.RoutingUpdate
	traces     []domain.TraceEvent
	reasoning  string
	text       strings.Builder
	documents  []domain.DocumentRecord
	terminal   *domain.Terminal
	err        error

	focusInput   bool
	scrollOffset int
	width        int
	height       int
	ready        bool
}

// NewView creates a new ask view.
func NewView(s *styles.Styles, km *keymap.KeyMap, tasks driving.TaskService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.StageActive

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewPrompt(s, "Ask", "What happened in the news today?"),
		spinner:    sp,
		statusbar:  status.NewBar(s, km),
		tasks:      tasks,
		ctx:        context.Background(),
		focusInput: true,
		width:      80,
		height:     24,
	}
}

// WithContext sets the context runs are submitted under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDocumentRefs scopes the next question to the given documents.
func (v *View) SetDocumentRefs(ids []string) {
	v.documentRefs = append([]string(nil), ids...)
}

// Submit starts a run for message, as if it had been typed.
func (v *View) Submit(message string) tea.Cmd {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	if v.running {
		return nil
	}
	v.input.SetValue(message)
	v.input.Blur()
	v.focusInput = false
	v.resetRun()
	v.running = true
	v.statusbar.Start("Submitting...")

	tasks, ctx := v.tasks, v.ctx
	req := domain.TaskRequest{Message: message, DocumentRefs: v.documentRefs}
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		if tasks == nil {
			return messages.RunStarted{Err: ErrNoTaskService}
		}
		run, err := tasks.Submit(ctx, req)
		return messages.RunStarted{Run: run, Err: err}
	})
}

// waitForEvent reads the next event of run. The command is re-issued after
// every event so that the stream is consumed one message at a time.
func waitForEvent(run driving.Run) tea.Cmd {
	events := run.Events()
	id := run.ID()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.RunFinished{RunID: id, State: run.State()}
		}
		return messages.RunEvent{RunID: id, Event: ev}
	}
}

func (v *View) resetRun() {
	v.run = nil
	v.finalState = ""
	v.routing = domain.RoutingState{}
	v.steps = nil
	v.traces = nil
	v.reasoning = ""
	v.text.Reset()
	v.documents = nil
	v.terminal = nil
	v.err = nil
	v.scrollOffset = 0
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !v.running {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.RunStarted:
		if msg.Err != nil {
			v.running = false
			v.setError(msg.Err)
			return v, nil
		}
		v.run = msg.Run
		v.statusbar.SetMessage("Run " + msg.Run.ID())
		return v, waitForEvent(msg.Run)

	case messages.RunEvent:
		if v.run == nil || msg.RunID != v.run.ID() {
			return v, nil
		}
		// Events buffered before a cancel are drained but not shown.
		if v.running {
			v.applyEvent(msg.Event)
		}
		return v, waitForEvent(v.run)

	case messages.RunFinished:
		if v.run == nil || msg.RunID != v.run.ID() {
			return v, nil
		}
		v.finish(msg.State)
		return v, nil
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if keymap.Matches(k, v.keymap.Stop) {
		v.Cancel()
		return v, nil
	}

	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			return v, v.Submit(v.input.Value())
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(k, v.keymap.Up):
		v.scrollTo(v.scrollOffset - 1)
	case keymap.Matches(k, v.keymap.Down):
		v.scrollTo(v.scrollOffset + 1)
	case k == "pgup":
		v.scrollTo(v.scrollOffset - v.bodyHeight())
	case k == "pgdown":
		v.scrollTo(v.scrollOffset + v.bodyHeight())
	case keymap.Matches(k, v.keymap.NewPrompt) && !v.running:
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}
	return v, nil
}

// Cancel abandons the current run, if any.
func (v *View) Cancel() {
	if v.run == nil || !v.running {
		return
	}
	v.run.Cancel()
	v.finish(domain.RunCancelled)
}

func (v *View) applyEvent(ev domain.Event) {
	switch ev.Kind {
	case domain.KindTextDelta:
		v.text.WriteString(ev.Text)
	case domain.KindReasoningFragment:
		v.reasoning = ev.Text
	case domain.KindRoutingUpdate:
		v.mergeStep(*ev.Routing)
		if ev.Routing.StageID.IsValid() {
			v.statusbar.SetMessage(ev.Routing.StageID.Label())
		}
	case domain.KindTraceEvent:
		v.traces = append(v.traces, *ev.Trace)
	case domain.KindDocumentDiscovered:
		v.documents = append(v.documents, *ev.Document)
	case domain.KindTerminal:
		v.terminal = ev.Terminal
	}
	v.routing = v.run.Routing()
	v.statusbar.SetProgress(v.routing.HighWaterRank, len(domain.Stages))
}

// mergeStep replaces the step with the same ID, or appends a new one.
func (v *View) mergeStep(u domain.RoutingUpdate) {
	if u.ID != "" {
		for i := range v.steps {
			if v.steps[i].ID == u.ID {
				v.steps[i] = u
				return
			}
		}
	}
	v.steps = append(v.steps, u)
}

func (v *View) finish(state domain.RunState) {
	if !v.running {
		return
	}
	v.running = false
	v.finalState = state
	if v.run != nil {
		v.routing = v.run.Routing()
	}

	switch {
	case state == domain.RunCancelled:
		v.statusbar.SetState(status.StateDone)
		v.statusbar.SetMessage("Run cancelled")
	case v.terminal != nil && !v.terminal.Success:
		v.setError(fmt.Errorf("%s: %s", v.terminal.Code, v.terminal.Error))
	default:
		v.statusbar.SetState(status.StateDone)
		v.statusbar.SetMessage("Run completed")
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// Answer returns the artifact narrative once available, else the text
// streamed so far.
func (v *View) Answer() string {
	if v.terminal != nil && v.terminal.Artifact != nil {
		if n := v.terminal.Artifact.Narrative(); n != "" {
			return n
		}
	}
	return strings.TrimSpace(v.text.String())
}

func (v *View) bodyLines() []string {
	answer := v.Answer()
	if answer == "" {
		return nil
	}
	wrapped := lipgloss.NewStyle().Width(max(v.width-4, 20)).Render(answer)
	return strings.Split(wrapped, "\n")
}

func (v *View) bodyHeight() int {
	// Reserve lines for the header, stage line, traces and status bar
	return max(v.height-14-min(len(v.traces), maxTraceLines), 3)
}

func (v *View) scrollTo(offset int) {
	maxOffset := max(len(v.bodyLines())-v.bodyHeight(), 0)
	v.scrollOffset = max(0, min(offset, maxOffset))
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 16)
	sections = append(sections, v.styles.Title.Render("Newsdesk"), "", v.input.View())

	if len(v.documentRefs) > 0 {
		sections = append(sections, v.styles.Muted.Render("Scope: "+strings.Join(v.documentRefs, ", ")))
	}
	sections = append(sections, "")

	if v.run != nil || v.running {
		stage := v.styles.StageLine(v.routing)
		if v.running {
			stage = v.spinner.View() + " " + stage
		}
		sections = append(sections, stage)
		sections = append(sections, v.renderSteps()...)
		sections = append(sections, v.renderTraces()...)
		if v.reasoning != "" {
			sections = append(sections, v.styles.Reasoning.Render(list.Truncate(v.reasoning, max(v.width-4, 20))))
		}
		sections = append(sections, "")
	}

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if lines := v.bodyLines(); len(lines) > 0 {
		end := min(v.scrollOffset+v.bodyHeight(), len(lines))
		for _, line := range lines[v.scrollOffset:end] {
			sections = append(sections, v.styles.Normal.Render(line))
		}
		if len(lines) > v.bodyHeight() {
			sections = append(sections, v.styles.Muted.Render(
				fmt.Sprintf("  [lines %d-%d of %d]", v.scrollOffset+1, end, len(lines))))
		}
	}

	if v.terminal != nil && v.terminal.Artifact != nil {
		if names := v.terminal.Artifact.Sections(); len(names) > 0 {
			sections = append(sections, "", v.styles.Subtitle.Render("Sections: "+strings.Join(names, ", ")))
		}
	}

	if len(v.documents) > 0 {
		sections = append(sections, "", v.styles.Subtitle.Render(fmt.Sprintf("Discovered (%d)", len(v.documents))))
		for _, doc := range v.documents {
			line := "  " + doc.Name
			if doc.URL != "" {
				line += "  " + v.styles.Muted.Render(doc.URL)
			}
			sections = append(sections, line)
		}
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderSteps() []string {
	lines := make([]string, 0, len(v.steps))
	for _, step := range v.steps {
		line := "  " + step.Label
		if step.Status != "" {
			line += " (" + step.Status + ")"
		}
		if step.ETA != "" {
			line += " eta " + step.ETA
		}
		lines = append(lines, v.styles.Muted.Render(line))
	}
	return lines
}

func (v *View) renderTraces() []string {
	traces := v.traces
	if len(traces) > maxTraceLines {
		traces = traces[len(traces)-maxTraceLines:]
	}
	lines := make([]string, 0, len(traces))
	for _, tr := range traces {
		lines = append(lines, v.styles.Trace.Render("  ⚙ "+FormatTrace(tr, max(v.width-8, 20))))
	}
	return lines
}

// FormatTrace renders a trace as its kind followed by its payload fields in
// key order, cut to width runes.
func FormatTrace(tr domain.TraceEvent, width int) string {
	keys := make([]string, 0, len(tr.Payload))
	for k := range tr.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, tr.Kind)
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(strings.Fields(tr.Payload[k]), " "))
	}
	line := strings.Join(parts, " ")
	if tr.Truncated {
		line += " …"
	}
	return list.Truncate(line, width)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
}

// Running reports whether a run is in progress.
func (v *View) Running() bool {
	return v.running
}

// FinalState returns the state the last run ended in, or "" while running.
func (v *View) FinalState() domain.RunState {
	return v.finalState
}

// Routing returns the stage progress of the current run.
func (v *View) Routing() domain.RoutingState {
	return v.routing
}

// Steps returns the merged routing steps of the current run.
func (v *View) Steps() []domain.RoutingUpdate {
	return v.steps
}

// Traces returns the traces of the current run.
func (v *View) Traces() []domain.TraceEvent {
	return v.traces
}

// Documents returns the documents discovered by the current run.
func (v *View) Documents() []domain.DocumentRecord {
	return v.documents
}

// Terminal returns the terminal event of the current run, if received.
func (v *View) Terminal() *domain.Terminal {
	return v.terminal
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the prompt has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
