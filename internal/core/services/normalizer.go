package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// DefaultTraceMaxLen is the character bound of trace payload fields.
const DefaultTraceMaxLen = 2000

// truncationSuffix marks a field cut to the trace bound.
const truncationSuffix = "..."

// Upstream event names grouped by the normalised kind they produce.
var (
	contentEvents = map[string]bool{
		"RunContent":                 true,
		"TeamRunContent":             true,
		"RunIntermediateContent":     true,
		"TeamRunIntermediateContent": true,
	}

	reasoningEvents = map[string]bool{
		"ReasoningStarted":          true,
		"TeamReasoningStarted":      true,
		"ReasoningStep":             true,
		"TeamReasoningStep":         true,
		"ReasoningContentDelta":     true,
		"TeamReasoningContentDelta": true,
		"ReasoningCompleted":        true,
		"TeamReasoningCompleted":    true,
	}

	traceEventKinds = map[string]string{
		"ToolCallStarted":       "tool_start",
		"TeamToolCallStarted":   "tool_start",
		"tool_call_started":     "tool_start",
		"ToolCallCompleted":     "tool_done",
		"TeamToolCallCompleted": "tool_done",
		"tool_call_completed":   "tool_done",
		"ToolCallError":         "tool_error",
		"TeamToolCallError":     "tool_error",
		"tool_call_error":       "tool_error",
		"AgentDelegated":        "delegation",
		"agent_delegated":       "delegation",
	}

	errorEvents = map[string]bool{
		"RunError":     true,
		"TeamRunError": true,
		"Error":        true,
		"error":        true,
	}
)

// routingStep is a synthesised routing update for a lifecycle event.
type routingStep struct {
	id    string
	label string
}

var lifecycleSteps = map[string]routingStep{
	"RunStarted":              {"run-main", "Model run"},
	"TeamRunStarted":          {"run-main", "Model run"},
	"RunCompleted":            {"content-processing", "Processing content"},
	"TeamRunCompleted":        {"content-processing", "Processing content"},
	"RunContentCompleted":     {"content-processing", "Processing content"},
	"TeamRunContentCompleted": {"content-processing", "Processing content"},
}

// EventNormalizer classifies the raw events of one run into normalised
// events. It is not safe for concurrent use; a run feeds it from a single
// goroutine.
type EventNormalizer struct {
	tracker     *StageTracker
	traceMaxLen int

	text          strings.Builder
	routingLog    []domain.RoutingUpdate
	lastReasoning string
	discovered    []domain.DocumentRecord
	discoveredIDs map[string]bool
}

// NewEventNormalizer creates a normaliser reporting stages to tracker.
// A non-positive traceMaxLen uses DefaultTraceMaxLen.
func NewEventNormalizer(tracker *StageTracker, traceMaxLen int) *EventNormalizer {
	if traceMaxLen <= 0 {
		traceMaxLen = DefaultTraceMaxLen
	}
	return &EventNormalizer{
		tracker:       tracker,
		traceMaxLen:   traceMaxLen,
		discoveredIDs: make(map[string]bool),
	}
}

// Normalize classifies one raw event. Every raw event yields exactly one
// event; shapes that match nothing yield KindUnclassified, which callers
// must not forward.
func (n *EventNormalizer) Normalize(raw domain.RawEvent) domain.Event {
	ev := n.classify(raw)
	if ev.Kind == domain.KindUnclassified {
		logger.Debug("Dropped upstream event (%s): %s", ev.Unhandled, truncateForLog(raw))
	}
	return ev
}

func (n *EventNormalizer) classify(raw domain.RawEvent) domain.Event {
	if !gjson.ValidBytes(raw) {
		return domain.UnclassifiedEvent("invalid JSON")
	}

	res := gjson.ParseBytes(raw)
	if res.Type == gjson.String {
		return n.textDelta(res.String())
	}
	if !res.IsObject() {
		return domain.UnclassifiedEvent("not an object")
	}

	name := res.Get("event").String()
	sig := signalsOf(res, name)
	done := isDoneEvent(res, name)
	if !done {
		n.tracker.Observe(sig)
	}

	if text, ok := extractText(res, name); ok {
		return n.textDelta(text)
	}
	if update, ok := extractRouting(res, name); ok {
		return n.routing(update)
	}
	if text, ok := extractReasoning(res, name); ok {
		return n.reasoning(text)
	}
	if trace, ok := n.extractTrace(res, name); ok {
		return domain.TraceEventOf(trace)
	}
	if doc, ok := extractDocument(res, name); ok {
		return n.document(doc)
	}
	if msg, ok := extractError(res, name); ok {
		return domain.FailureEvent(fmt.Errorf("%w: %s", domain.ErrUpstreamFeed, msg))
	}
	if done {
		if !sig.Success {
			return domain.UnclassifiedEvent("done without explicit success")
		}
		return n.complete(res)
	}

	if name != "" {
		return domain.UnclassifiedEvent("unknown event " + name)
	}
	return domain.UnclassifiedEvent("unknown shape")
}

// Finalize builds the terminal event from the text accumulated so far.
// The orchestrator calls it when the feed ends without a terminal event.
func (n *EventNormalizer) Finalize() domain.Event {
	a, err := domain.ParseArtifact(n.text.String())
	if err != nil {
		return domain.FailureEvent(err)
	}
	n.decorate(a)
	n.tracker.Advance(domain.StageComplete)
	return domain.SuccessEvent(a)
}

// Text returns the concatenation of every text delta seen.
func (n *EventNormalizer) Text() string {
	return n.text.String()
}

// RoutingLog returns the merged routing steps in first-seen order.
func (n *EventNormalizer) RoutingLog() []domain.RoutingUpdate {
	return append([]domain.RoutingUpdate(nil), n.routingLog...)
}

func (n *EventNormalizer) textDelta(text string) domain.Event {
	n.text.WriteString(text)
	return domain.TextDeltaEvent(text)
}

func (n *EventNormalizer) routing(update domain.RoutingUpdate) domain.Event {
	update.StageID = n.tracker.Current()
	n.logRouting(update)
	return domain.RoutingEvent(update)
}

// logRouting merges an update into the log by step id. An update that
// changes nothing is not logged again.
func (n *EventNormalizer) logRouting(update domain.RoutingUpdate) bool {
	for i, step := range n.routingLog {
		if step.ID != update.ID {
			continue
		}
		merged := step
		if update.Label != "" {
			merged.Label = update.Label
		}
		if update.Status != "" {
			merged.Status = update.Status
		}
		if update.ETA != "" {
			merged.ETA = update.ETA
		}
		if update.StageID != "" {
			merged.StageID = update.StageID
		}
		if merged == step {
			return false
		}
		n.routingLog[i] = merged
		return true
	}
	n.routingLog = append(n.routingLog, update)
	return true
}

// reasoning forwards the fragment as received: callers concatenate
// fragments, so whitespace is content. Only the summary is bounded.
func (n *EventNormalizer) reasoning(text string) domain.Event {
	if clean := strings.TrimSpace(text); clean != "" {
		n.lastReasoning = clean
	}
	return domain.ReasoningEvent(text)
}

func (n *EventNormalizer) document(doc domain.DocumentRecord) domain.Event {
	if !n.discoveredIDs[doc.ID] {
		n.discoveredIDs[doc.ID] = true
		n.discovered = append(n.discovered, doc)
	}
	return domain.DocumentEvent(doc)
}

// complete validates the final artifact. Only a valid artifact moves the
// tracker to complete.
func (n *EventNormalizer) complete(res gjson.Result) domain.Event {
	text := n.text.String()
	if a := res.Get("artifact"); a.IsObject() {
		text = a.Raw
	} else if c := res.Get("content"); c.Type == gjson.String && strings.TrimSpace(c.String()) != "" {
		text = c.String()
	}

	a, err := domain.ParseArtifact(text)
	if err != nil {
		return domain.FailureEvent(err)
	}
	n.decorate(a)
	n.tracker.Advance(domain.StageComplete)
	return domain.SuccessEvent(a)
}

// decorate attaches the run's routing log, reasoning summary and
// discovered documents to the artifact.
func (n *EventNormalizer) decorate(a *domain.Artifact) {
	a.Routing = n.RoutingLog()
	if n.lastReasoning != "" {
		a.ReasoningSummary, _ = truncateField(n.lastReasoning, n.traceMaxLen)
	}

	seen := make(map[string]bool, len(a.DocumentsAppend)+len(n.discovered))
	docs := make([]domain.DocumentRecord, 0, len(a.DocumentsAppend)+len(n.discovered))
	for _, d := range append(append([]domain.DocumentRecord(nil), a.DocumentsAppend...), n.discovered...) {
		if d.ID == "" || seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		docs = append(docs, d)
	}
	a.DocumentsAppend = docs
}

// signalsOf collects stage hints from an event, looking inside a nested
// routing object when present.
func signalsOf(res gjson.Result, name string) StageSignals {
	src := res
	if obj := routingObject(res); obj.Exists() {
		src = obj
	}

	status := firstString(src, "status")
	sig := StageSignals{
		Stage:     firstString(src, "stage", "stageId", "stage_id"),
		EventType: name,
		StepID:    firstString(src, "id"),
		Status:    status,
		Label:     firstString(src, "label", "caption"),
		Success:   res.Get("success").Type == gjson.True || isSuccessStatus(status),
	}
	if sig.Stage == "" {
		sig.Stage = firstString(res, "stage")
	}
	return sig
}

func routingObject(res gjson.Result) gjson.Result {
	for _, key := range []string{"routing", "routing_update", "routingUpdate"} {
		if obj := res.Get(key); obj.IsObject() {
			return obj
		}
	}
	return gjson.Result{}
}

func isDoneEvent(res gjson.Result, name string) bool {
	return res.Get("done").Type == gjson.True ||
		isDoneEventType(name) ||
		isDoneEventType(res.Get("type").String())
}

func extractText(res gjson.Result, name string) (string, bool) {
	if contentEvents[name] {
		c := res.Get("content")
		switch {
		case c.Type == gjson.String && c.String() != "":
			return c.String(), true
		case c.IsObject() || c.IsArray():
			return c.Raw, true
		}
		return "", false
	}
	for _, key := range []string{"textDelta", "delta"} {
		if v := res.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String(), true
		}
	}
	return "", false
}

func extractRouting(res gjson.Result, name string) (domain.RoutingUpdate, bool) {
	obj := routingObject(res)
	if !obj.Exists() && res.Get("label").Type == gjson.String && res.Get("status").Type == gjson.String {
		obj = res
	}
	if obj.Exists() {
		u := domain.RoutingUpdate{
			ID:     firstString(obj, "id"),
			Label:  firstString(obj, "label", "caption"),
			Status: firstString(obj, "status"),
			ETA:    firstString(obj, "eta"),
		}
		if u.ID == "" {
			u.ID = u.Label
		}
		return u, true
	}

	if step, ok := lifecycleSteps[name]; ok {
		return domain.RoutingUpdate{ID: step.id, Label: step.label, Status: "running"}, true
	}
	return domain.RoutingUpdate{}, false
}

func extractReasoning(res gjson.Result, name string) (string, bool) {
	if s := res.Get("reasoning_summary"); s.Type == gjson.String && strings.TrimSpace(s.String()) != "" {
		return s.String(), true
	}

	if reasoningEvents[name] {
		if text := firstString(res, "reasoning_content", "content"); text != "" {
			return text, true
		}
		if text := formatReasoningSteps(res.Get("reasoning_steps")); text != "" {
			return text, true
		}
	}

	var found string
	res.Get("output").ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "reasoning" {
			return true
		}
		item.Get("summary").ForEach(func(_, s gjson.Result) bool {
			if s.Get("type").String() == "summary_text" && s.Get("text").String() != "" {
				found = s.Get("text").String()
				return false
			}
			return true
		})
		return found == ""
	})
	return found, found != ""
}

func formatReasoningSteps(steps gjson.Result) string {
	var lines []string
	steps.ForEach(func(_, step gjson.Result) bool {
		var parts []string
		for _, key := range []string{"title", "action", "result"} {
			if v := step.Get(key).String(); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, fmt.Sprintf("%d. %s", len(lines)+1, strings.Join(parts, " | ")))
		}
		return true
	})
	return strings.Join(lines, "\n")
}

func (n *EventNormalizer) extractTrace(res gjson.Result, name string) (domain.TraceEvent, bool) {
	var (
		kind    string
		payload = make(map[string]string)
	)

	if t := res.Get("trace"); t.IsObject() {
		kind = t.Get("kind").String()
		t.Get("payload").ForEach(func(key, value gjson.Result) bool {
			payload[key.String()] = stringValue(value)
			return true
		})
	} else if k, ok := traceEventKinds[name]; ok {
		kind = k
		tool := res.Get("tool")
		fields := map[string]string{
			"tool":    firstString(tool, "tool_name", "name"),
			"call_id": firstString(tool, "tool_call_id", "id"),
			"args":    stringValue(firstResult(tool, "tool_args", "arguments")),
			"result":  stringValue(firstResult(tool, "result")),
			"error":   stringValue(firstResult(tool, "error")),
			"agent":   firstString(res, "agent_name", "agent"),
			"message": firstString(res, "message"),
		}
		if fields["tool"] == "" {
			fields["tool"] = firstString(res, "tool_name")
		}
		if fields["args"] == "" {
			fields["args"] = stringValue(firstResult(res, "tool_arguments", "tool_args"))
		}
		if fields["result"] == "" {
			fields["result"] = stringValue(res.Get("result"))
		}
		if fields["error"] == "" {
			fields["error"] = stringValue(res.Get("error"))
		}
		for key, value := range fields {
			if value != "" {
				payload[key] = value
			}
		}
	} else {
		return domain.TraceEvent{}, false
	}

	if kind == "" {
		return domain.TraceEvent{}, false
	}

	trace := domain.TraceEvent{Kind: kind, Payload: payload}
	for key, value := range payload {
		cut, truncated := truncateField(value, n.traceMaxLen)
		payload[key] = cut
		trace.Truncated = trace.Truncated || truncated
	}
	return trace, true
}

func extractDocument(res gjson.Result, name string) (domain.DocumentRecord, bool) {
	obj := res.Get("document_discovered")
	if !obj.IsObject() {
		obj = res.Get("documentDiscovered")
	}
	if !obj.IsObject() && name == "DocumentDiscovered" {
		obj = res.Get("document")
	}
	if !obj.IsObject() {
		return domain.DocumentRecord{}, false
	}

	var doc domain.DocumentRecord
	if err := json.Unmarshal([]byte(obj.Raw), &doc); err != nil || doc.ID == "" {
		return domain.DocumentRecord{}, false
	}
	if doc.SourceKind == "" {
		doc.SourceKind = domain.SourceGenerated
	}
	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	if doc.Name == "" {
		doc.Name = doc.ID
	}
	return doc, true
}

func extractError(res gjson.Result, name string) (string, bool) {
	if errorEvents[name] {
		msg := firstString(res, "error", "content", "message")
		if msg == "" {
			msg = firstString(res.Get("error"), "message")
		}
		if msg == "" {
			msg = name
		}
		return msg, true
	}

	e := res.Get("error")
	switch {
	case e.Type == gjson.String && e.String() != "":
		return e.String(), true
	case e.IsObject():
		if msg := firstString(e, "message"); msg != "" {
			return msg, true
		}
		return e.Raw, true
	}
	return "", false
}

// firstString returns the first non-empty string field among keys.
func firstString(res gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := res.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// firstResult returns the first present, non-null field among keys.
func firstResult(res gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := res.Get(key); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// stringValue renders a field as text: strings as-is, anything else as JSON.
func stringValue(v gjson.Result) string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.String()
	default:
		return v.Raw
	}
}

// truncateField trims s and cuts it to max characters with a suffix.
func truncateField(s string, max int) (string, bool) {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]) + truncationSuffix, true
}

func truncateForLog(raw []byte) string {
	s, _ := truncateField(string(raw), 200)
	return s
}
