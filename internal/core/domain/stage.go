package domain

import "strings"

// Stage is one of the four ordered phases of a task run.
type Stage string

// Available stages, in rank order.
const (
	StageAnalyze  Stage = "analyze"
	StageSearch   Stage = "search"
	StageProcess  Stage = "process"
	StageComplete Stage = "complete"
)

// Stages lists every stage in rank order.
var Stages = []Stage{StageAnalyze, StageSearch, StageProcess, StageComplete}

// Rank returns the 1-based order of the stage, or 0 if it is not a stage.
func (s Stage) Rank() int {
	switch s {
	case StageAnalyze:
		return 1
	case StageSearch:
		return 2
	case StageProcess:
		return 3
	case StageComplete:
		return 4
	default:
		return 0
	}
}

// IsValid returns true if the stage is recognised.
func (s Stage) IsValid() bool {
	return s.Rank() > 0
}

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// Label returns a short display label.
func (s Stage) Label() string {
	switch s {
	case StageAnalyze:
		return "Analyzing request"
	case StageSearch:
		return "Searching sources"
	case StageProcess:
		return "Processing content"
	case StageComplete:
		return "Complete"
	default:
		return unknownDescription
	}
}

// stageAliases maps explicit stage spellings seen upstream to stages.
var stageAliases = map[string]Stage{
	"analyze":    StageAnalyze,
	"analyse":    StageAnalyze,
	"analysis":   StageAnalyze,
	"analyzing":  StageAnalyze,
	"search":     StageSearch,
	"searching":  StageSearch,
	"retrieval":  StageSearch,
	"process":    StageProcess,
	"processing": StageProcess,
	"complete":   StageComplete,
	"completed":  StageComplete,
}

// ParseStage resolves an explicit stage identifier. It does not guess from
// free text; see the stage tracker for keyword resolution.
func ParseStage(s string) (Stage, bool) {
	stage, ok := stageAliases[strings.ToLower(strings.TrimSpace(s))]
	return stage, ok
}

// RoutingState is the progress of one task run.
// HighWaterRank never decreases for the lifetime of a run.
type RoutingState struct {
	// Current is the latest accepted stage, empty before the first advance.
	Current Stage `json:"currentStage,omitempty"`

	// Completed lists every stage ranked below Current, in order.
	Completed []Stage `json:"completedStages"`

	// HighWaterRank is the highest stage rank accepted so far.
	HighWaterRank int `json:"highWaterRank"`
}
