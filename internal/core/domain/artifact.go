package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Artifact is the structured result of a task run.
// Section bodies are kept as raw JSON: their inner schema belongs to the
// prompt, not to the engine. Only their presence is checked.
type Artifact struct {
	// Assistant is the conversational reply, either a string or an
	// object with a content field.
	Assistant json.RawMessage `json:"assistant,omitempty"`

	Summary     json.RawMessage `json:"summary,omitempty"`
	Translation json.RawMessage `json:"translation,omitempty"`
	Memo        json.RawMessage `json:"memo,omitempty"`

	// Routing is the merged routing log of the run.
	Routing []RoutingUpdate `json:"routing,omitempty"`

	// ReasoningSummary is the last reasoning fragment of the run, bounded.
	ReasoningSummary string `json:"reasoning_summary,omitempty"`

	// DocumentsAppend lists documents discovered during the run.
	DocumentsAppend []DocumentRecord `json:"documents_append,omitempty"`
}

// ParseArtifact decodes generated text into an artifact and validates it.
// Text that is not a JSON object on its own is parsed from its outermost
// brace span, since models often wrap JSON in prose or code fences.
func ParseArtifact(text string) (*Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty artifact", ErrSchemaValidation)
	}

	var a Artifact
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object in output", ErrSchemaValidation)
		}
		a = Artifact{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the minimal shape: a non-empty narrative or at least
// one structured section object.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: artifact is nil", ErrSchemaValidation)
	}
	if a.Narrative() != "" {
		return nil
	}
	for _, section := range []json.RawMessage{a.Summary, a.Translation, a.Memo} {
		if isObject(section) {
			return nil
		}
	}
	return fmt.Errorf("%w: no assistant, summary, translation or memo section", ErrSchemaValidation)
}

// Narrative returns the conversational reply text, or "" if absent.
func (a *Artifact) Narrative() string {
	if a == nil || len(a.Assistant) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(a.Assistant, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(a.Assistant, &obj); err == nil {
		return strings.TrimSpace(obj.Content)
	}
	return ""
}

// Sections returns the names of structured sections present.
func (a *Artifact) Sections() []string {
	var names []string
	if isObject(a.Summary) {
		names = append(names, "summary")
	}
	if isObject(a.Translation) {
		names = append(names, "translation")
	}
	if isObject(a.Memo) {
		names = append(names, "memo")
	}
	return names
}

func isObject(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{"))
}
