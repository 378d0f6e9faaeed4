package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind discriminates the closed set of normalised events.
type EventKind string

// Available event kinds.
const (
	KindTextDelta          EventKind = "textDelta"
	KindRoutingUpdate      EventKind = "routingUpdate"
	KindTraceEvent         EventKind = "traceEvent"
	KindReasoningFragment  EventKind = "reasoningFragment"
	KindDocumentDiscovered EventKind = "documentDiscovered"
	KindTerminal           EventKind = "terminal"

	// KindUnclassified marks a raw event that matched no known shape.
	// It is never forwarded to callers.
	KindUnclassified EventKind = "unclassified"
)

// RawEvent is one opaque upstream event, as a JSON document.
// Its schema varies across upstream versions.
type RawEvent []byte

// RoutingUpdate reports progress of one routing step.
type RoutingUpdate struct {
	// ID identifies the step so repeated updates merge.
	ID string `json:"id,omitempty"`

	// StageID is the tracker's stage after observing this update.
	StageID Stage `json:"stageId,omitempty"`

	Label  string `json:"label"`
	Status string `json:"status"`
	ETA    string `json:"eta,omitempty"`
}

// TraceEvent records a delegated sub-action such as a tool invocation.
type TraceEvent struct {
	// Kind is one of tool_start, tool_done, tool_error, delegation, index_rejected.
	Kind string `json:"kind"`

	// Payload holds the bounded textual fields of the action.
	Payload map[string]string `json:"payload"`

	// Truncated is true when any payload field was cut to the trace bound.
	Truncated bool `json:"truncated"`
}

// Terminal is the single event that ends a task run.
type Terminal struct {
	Success  bool      `json:"success"`
	Artifact *Artifact `json:"artifact,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     ErrorCode `json:"code,omitempty"`
}

// Event is a normalised event. Exactly one payload field is set, as
// selected by Kind.
type Event struct {
	Kind      EventKind
	Text      string
	Routing   *RoutingUpdate
	Trace     *TraceEvent
	Document  *DocumentRecord
	Terminal  *Terminal
	Unhandled string
}

// TextDeltaEvent creates a text fragment event.
func TextDeltaEvent(text string) Event {
	return Event{Kind: KindTextDelta, Text: text}
}

// RoutingEvent creates a routing update event.
func RoutingEvent(u RoutingUpdate) Event {
	return Event{Kind: KindRoutingUpdate, Routing: &u}
}

// TraceEventOf creates a trace event.
func TraceEventOf(t TraceEvent) Event {
	return Event{Kind: KindTraceEvent, Trace: &t}
}

// ReasoningEvent creates a reasoning fragment event.
func ReasoningEvent(text string) Event {
	return Event{Kind: KindReasoningFragment, Text: text}
}

// DocumentEvent creates a document discovered event.
func DocumentEvent(doc DocumentRecord) Event {
	return Event{Kind: KindDocumentDiscovered, Document: &doc}
}

// SuccessEvent creates a successful terminal event.
func SuccessEvent(a *Artifact) Event {
	return Event{Kind: KindTerminal, Terminal: &Terminal{Success: true, Artifact: a}}
}

// FailureEvent creates a failed terminal event from an error.
func FailureEvent(err error) Event {
	return Event{Kind: KindTerminal, Terminal: &Terminal{
		Success: false,
		Error:   err.Error(),
		Code:    CodeFor(err),
	}}
}

// UnclassifiedEvent marks a raw event that matched no known shape.
func UnclassifiedEvent(reason string) Event {
	return Event{Kind: KindUnclassified, Unhandled: reason}
}

// IsTerminal returns true for terminal events.
func (e Event) IsTerminal() bool {
	return e.Kind == KindTerminal
}

// MarshalJSON encodes the event in its egress wire shape, a single-key
// object named after the kind.
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Kind {
	case KindTextDelta, KindReasoningFragment:
		payload = e.Text
	case KindRoutingUpdate:
		payload = e.Routing
	case KindTraceEvent:
		payload = e.Trace
	case KindDocumentDiscovered:
		payload = e.Document
	case KindTerminal:
		payload = e.Terminal
	default:
		return nil, fmt.Errorf("event kind %q has no wire form", e.Kind)
	}
	return json.Marshal(map[string]any{string(e.Kind): payload})
}

// UnmarshalJSON decodes an egress wire event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if len(wire) != 1 {
		return fmt.Errorf("wire event must have exactly one key, got %d", len(wire))
	}
	for key, raw := range wire {
		kind := EventKind(key)
		*e = Event{Kind: kind}
		switch kind {
		case KindTextDelta, KindReasoningFragment:
			return json.Unmarshal(raw, &e.Text)
		case KindRoutingUpdate:
			e.Routing = &RoutingUpdate{}
			return json.Unmarshal(raw, e.Routing)
		case KindTraceEvent:
			e.Trace = &TraceEvent{}
			return json.Unmarshal(raw, e.Trace)
		case KindDocumentDiscovered:
			e.Document = &DocumentRecord{}
			return json.Unmarshal(raw, e.Document)
		case KindTerminal:
			e.Terminal = &Terminal{}
			return json.Unmarshal(raw, e.Terminal)
		default:
			return fmt.Errorf("unknown wire event %q", key)
		}
	}
	return nil
}
