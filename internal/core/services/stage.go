package services

import (
	"strings"
	"sync"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// StageSignals are the stage hints carried by one upstream event.
type StageSignals struct {
	// Stage is an explicit stage field, if the event has one.
	Stage string

	// EventType is the upstream event name, e.g. "RunStarted".
	EventType string

	// StepID is the routing step identifier, e.g. "run-main".
	StepID string

	// Status is the step status, e.g. "running" or "done".
	Status string

	// Label is a free-text caption.
	Label string

	// Success is true only for a definitive success status.
	Success bool
}

// Upstream event names with a fixed stage.
var eventTypeStages = map[string]domain.Stage{
	"RunContent":                 domain.StageSearch,
	"TeamRunContent":             domain.StageSearch,
	"RunIntermediateContent":     domain.StageSearch,
	"TeamRunIntermediateContent": domain.StageSearch,
	"ToolCallStarted":            domain.StageSearch,
	"TeamToolCallStarted":        domain.StageSearch,
	"ToolCallCompleted":          domain.StageSearch,
	"TeamToolCallCompleted":      domain.StageSearch,
	"ToolCallError":              domain.StageSearch,
	"TeamToolCallError":          domain.StageSearch,
	"ReasoningStarted":           domain.StageAnalyze,
	"TeamReasoningStarted":       domain.StageAnalyze,
	"ReasoningStep":              domain.StageAnalyze,
	"TeamReasoningStep":          domain.StageAnalyze,
	"ReasoningContentDelta":      domain.StageAnalyze,
	"TeamReasoningContentDelta":  domain.StageAnalyze,
	"ReasoningCompleted":         domain.StageAnalyze,
	"TeamReasoningCompleted":     domain.StageAnalyze,
	"RunCompleted":               domain.StageProcess,
	"TeamRunCompleted":           domain.StageProcess,
	"RunContentCompleted":        domain.StageProcess,
	"TeamRunContentCompleted":    domain.StageProcess,
}

// primaryRunEvents name the main run. It is in analyze while running and
// in process once finished.
var primaryRunEvents = map[string]bool{
	"RunStarted":     true,
	"TeamRunStarted": true,
	"run-main":       true,
}

// stageKeywords is the caption vocabulary, checked in rank order.
// complete is absent: it is never inferred from a caption.
var stageKeywords = []struct {
	stage domain.Stage
	words []string
}{
	{domain.StageAnalyze, []string{"analy", "think", "reason", "plan", "understand"}},
	{domain.StageSearch, []string{"search", "query", "retriev", "lookup", "look up", "fetch", "brows"}},
	{domain.StageProcess, []string{"process", "summar", "writ", "draft", "generat", "translat", "compos"}},
}

// StageTracker is the monotonic four-stage progress model of one run.
// Its high-water rank never decreases, so reordered or duplicated
// upstream events can never move progress backwards.
type StageTracker struct {
	mu            sync.RWMutex
	current       domain.Stage
	highWaterRank int
}

// NewStageTracker creates a tracker with no current stage.
func NewStageTracker() *StageTracker {
	return &StageTracker{}
}

// Advance moves to stage unless it ranks below the high-water mark.
// Unknown stages are ignored. Returns true if the state changed.
func (t *StageTracker) Advance(stage domain.Stage) bool {
	rank := stage.Rank()
	if rank == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if rank < t.highWaterRank {
		return false
	}
	changed := t.current != stage
	t.current = stage
	t.highWaterRank = rank
	return changed
}

// Observe resolves an event's signals to a stage and advances to it.
// complete is only accepted with a definitive success.
func (t *StageTracker) Observe(sig StageSignals) bool {
	stage, ok := ResolveStage(sig)
	if !ok {
		return false
	}
	return t.Advance(stage)
}

// ResolveStage maps signals to a stage, trying the explicit stage field,
// then the event type, then the caption vocabulary.
func ResolveStage(sig StageSignals) (domain.Stage, bool) {
	if stage, ok := domain.ParseStage(sig.Stage); ok {
		if stage == domain.StageComplete && !sig.Success {
			return "", false
		}
		return stage, true
	}

	if stage, ok := stageFromEventType(sig); ok {
		return stage, true
	}

	label := strings.ToLower(sig.Label)
	if label == "" {
		return "", false
	}
	for _, entry := range stageKeywords {
		for _, word := range entry.words {
			if strings.Contains(label, word) {
				return entry.stage, true
			}
		}
	}
	return "", false
}

func stageFromEventType(sig StageSignals) (domain.Stage, bool) {
	if primaryRunEvents[sig.EventType] || primaryRunEvents[sig.StepID] {
		if isFinishedStatus(sig.Status) {
			return domain.StageProcess, true
		}
		return domain.StageAnalyze, true
	}

	if stage, ok := eventTypeStages[sig.EventType]; ok {
		return stage, true
	}

	if isDoneEventType(sig.EventType) && sig.Success {
		return domain.StageComplete, true
	}
	return "", false
}

func isFinishedStatus(status string) bool {
	switch strings.ToLower(status) {
	case "done", "completed", "complete", "finished":
		return true
	default:
		return false
	}
}

// isSuccessStatus reports a definitive success status.
func isSuccessStatus(status string) bool {
	switch strings.ToLower(status) {
	case "success", "succeeded":
		return true
	default:
		return false
	}
}

// isDoneEventType reports upstream names of a final "done" signal.
func isDoneEventType(name string) bool {
	switch name {
	case "done", "Done", "RunDone", "TeamRunDone":
		return true
	default:
		return false
	}
}

// Current returns the latest accepted stage, or "" before any advance.
func (t *StageTracker) Current() domain.Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// State returns a copy of the routing state.
func (t *StageTracker) State() domain.RoutingState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := domain.RoutingState{
		Current:       t.current,
		Completed:     []domain.Stage{},
		HighWaterRank: t.highWaterRank,
	}
	for _, s := range domain.Stages {
		if s.Rank() < t.highWaterRank {
			state.Completed = append(state.Completed, s)
		}
	}
	return state
}
