// Package openai runs agent tasks against the OpenAI chat completions API
// or a compatible endpoint. The model streams its answer and may call a
// search tool backed by the retrieval index.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/agent"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// Ensure Runner implements the interface.
var _ driven.AgentRunner = (*Runner)(nil)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4o-mini"
	DefaultTimeout       = 5 * time.Minute
	DefaultMaxToolRounds = 4
	DefaultTopK          = 5
)

const (
	searchToolName  = "search"
	maxPreviewChars = 200
	maxStreamLine   = 1 << 20
)

// defaultSystemPrompt is used when no PromptStore is configured.
const defaultSystemPrompt = `You are Newsdesk, a newsroom assistant. Use the search tool to find passages in the supplied documents before answering.
Reply with a single JSON object: {"assistant": {"content": "<answer in markdown>"}} plus optional "summary", "translation" or "memo" objects.`

// defaultSearchToolDescription is used when no PromptStore is configured.
const defaultSearchToolDescription = "Search the newsroom document index."

var searchParameters = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "description": "What to look for"},
    "top_k": {"type": "integer", "minimum": 1, "maximum": 20},
    "document_ids": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["query"]
}`)

// Config holds configuration for the OpenAI agent runner.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout bounds one streamed completion (default: 5m).
	Timeout time.Duration

	// MaxToolRounds bounds how many times the model may call tools
	// (default: 4). A negative value disables tools.
	MaxToolRounds int

	// TopK is the search result count when the model gives none.
	TopK int
}

// Runner starts agent runs against a chat completions endpoint.
type Runner struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	model         string
	maxToolRounds int
	topK          int
	promptStore   driven.PromptStore
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []toolSpec    `json:"tools,omitempty"`
}

// roundResult is what one streamed completion produced.
type roundResult struct {
	content   string
	toolCalls []toolCall
}

// NewRunner creates a new OpenAI agent runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxToolRounds == 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &Runner{
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		maxToolRounds: cfg.MaxToolRounds,
		topK:          cfg.TopK,
	}, nil
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the runner uses built-in prompts.
func (r *Runner) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// Name returns the runner name.
func (r *Runner) Name() string {
	return "openai"
}

// ModelName returns the chat model being used.
func (r *Runner) ModelName() string {
	return r.model
}

// Start begins a run. Events are produced while the caller reads the feed.
func (r *Runner) Start(ctx context.Context, req domain.AgentRequest, retriever driven.Retriever) (driven.EventFeed, error) {
	messages := []chatMessage{
		{Role: "system", Content: r.loadPrompt(driven.PromptAgentSystem, defaultSystemPrompt)},
		{Role: "user", Content: userMessage(req)},
	}

	return agent.NewFeed(ctx, func(ctx context.Context, emit agent.Emitter) error {
		return r.run(ctx, req, messages, retriever, emit)
	}), nil
}

func (r *Runner) run(ctx context.Context, req domain.AgentRequest, messages []chatMessage, retriever driven.Retriever, emit agent.Emitter) error {
	send := func(v any) error {
		return agent.EmitJSON(ctx, emit, v)
	}

	if err := send(map[string]any{"event": "RunStarted", "run_id": req.RunID, "model": r.model}); err != nil {
		return err
	}

	for round := 0; ; round++ {
		withTools := retriever != nil && round < r.maxToolRounds
		result, err := r.stream(ctx, messages, withTools, send)
		if err != nil {
			return err
		}

		if len(result.toolCalls) == 0 {
			if err := send(map[string]any{"event": "RunCompleted", "run_id": req.RunID}); err != nil {
				return err
			}
			return send(map[string]any{"done": true, "success": true})
		}

		if err := send(routing("search", "Searching documents", "running", domain.StageSearch)); err != nil {
			return err
		}
		messages = append(messages, chatMessage{Role: "assistant", Content: result.content, ToolCalls: result.toolCalls})
		for _, call := range result.toolCalls {
			content, err := r.callTool(ctx, call, retriever, send)
			if err != nil {
				return err
			}
			messages = append(messages, chatMessage{Role: "tool", ToolCallID: call.ID, Content: content})
		}
		if err := send(routing("search", "Searching documents", "done", domain.StageSearch)); err != nil {
			return err
		}
	}
}

// stream runs one completion, forwarding content as it arrives.
func (r *Runner) stream(ctx context.Context, messages []chatMessage, withTools bool, send func(any) error) (roundResult, error) {
	body := chatRequest{Model: r.model, Messages: messages, Stream: true}
	if withTools {
		body.Tools = []toolSpec{{
			Type: "function",
			Function: functionSpec{
				Name:        searchToolName,
				Description: r.loadPrompt(driven.PromptSearchTool, defaultSearchToolDescription),
				Parameters:  searchParameters,
			},
		}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return roundResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return roundResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return roundResult{}, fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = string(data)
		}
		return roundResult{}, fmt.Errorf("openai: status %d: %s", resp.StatusCode, msg)
	}

	var (
		content  strings.Builder
		calls    = make(map[int64]*toolCall)
		order    []int64
		composed bool
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		chunk := gjson.Parse(data)
		if e := chunk.Get("error"); e.Exists() {
			msg := e.Get("message").String()
			if msg == "" {
				msg = e.Raw
			}
			return roundResult{}, fmt.Errorf("openai: %s", msg)
		}

		delta := chunk.Get("choices.0.delta")
		if text := delta.Get("reasoning_content").String(); text != "" {
			if err := send(map[string]any{"event": "ReasoningContentDelta", "reasoning_content": text}); err != nil {
				return roundResult{}, err
			}
		}
		if text := delta.Get("content").String(); text != "" {
			if !composed {
				composed = true
				if err := send(routing("compose", "Writing answer", "running", domain.StageProcess)); err != nil {
					return roundResult{}, err
				}
			}
			content.WriteString(text)
			if err := send(map[string]any{"event": "RunContent", "content": text}); err != nil {
				return roundResult{}, err
			}
		}
		delta.Get("tool_calls").ForEach(func(_, tc gjson.Result) bool {
			idx := tc.Get("index").Int()
			call, ok := calls[idx]
			if !ok {
				call = &toolCall{Type: "function"}
				calls[idx] = call
				order = append(order, idx)
			}
			if id := tc.Get("id").String(); id != "" {
				call.ID = id
			}
			if name := tc.Get("function.name").String(); name != "" {
				call.Function.Name = name
			}
			call.Function.Arguments += tc.Get("function.arguments").String()
			return true
		})
	}
	if err := scanner.Err(); err != nil {
		return roundResult{}, fmt.Errorf("openai: read stream: %w", err)
	}

	result := roundResult{content: content.String()}
	for _, idx := range order {
		result.toolCalls = append(result.toolCalls, *calls[idx])
	}
	return result, nil
}

// callTool runs one tool call and returns the content for the tool message.
func (r *Runner) callTool(ctx context.Context, call toolCall, retriever driven.Retriever, send func(any) error) (string, error) {
	tool := map[string]any{
		"tool_name":    call.Function.Name,
		"tool_call_id": call.ID,
		"tool_args":    call.Function.Arguments,
	}
	if err := send(map[string]any{"event": "ToolCallStarted", "tool": tool}); err != nil {
		return "", err
	}

	fail := func(msg string) (string, error) {
		tool["error"] = msg
		if err := send(map[string]any{"event": "ToolCallError", "tool": tool}); err != nil {
			return "", err
		}
		out, _ := json.Marshal(map[string]string{"error": msg})
		return string(out), nil
	}

	if call.Function.Name != searchToolName {
		return fail("unknown tool " + call.Function.Name)
	}

	args := gjson.Parse(call.Function.Arguments)
	query := args.Get("query").String()
	if strings.TrimSpace(query) == "" {
		return fail("query is required")
	}
	opts := domain.SearchOptions{TopK: int(args.Get("top_k").Int())}
	if opts.TopK <= 0 {
		opts.TopK = r.topK
	}
	args.Get("document_ids").ForEach(func(_, id gjson.Result) bool {
		opts.DocumentIDs = append(opts.DocumentIDs, id.String())
		return true
	})

	hits, err := retriever.Search(ctx, query, opts)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return fail(err.Error())
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}

	out, err := json.Marshal(hits)
	if err != nil {
		return fail(err.Error())
	}
	tool["result"] = string(out)
	if err := send(map[string]any{"event": "ToolCallCompleted", "tool": tool}); err != nil {
		return "", err
	}
	return string(out), nil
}

// Ping validates the service is reachable by checking the /models endpoint.
func (r *Runner) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (r *Runner) loadPrompt(name, fallback string) string {
	if r.promptStore == nil {
		return fallback
	}
	prompt, err := r.promptStore.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

func routing(id, label, status string, stage domain.Stage) map[string]any {
	return map[string]any{"routing": map[string]string{
		"id":     id,
		"label":  label,
		"status": status,
		"stage":  string(stage),
	}}
}

// userMessage is the request followed by the documents the agent may search.
func userMessage(req domain.AgentRequest) string {
	if len(req.Documents) == 0 {
		return req.Message
	}

	var b strings.Builder
	b.WriteString(req.Message)
	b.WriteString("\n\nDocuments available to the search tool:\n")
	for _, doc := range req.Documents {
		fmt.Fprintf(&b, "- %s (id: %s)", doc.Name, doc.ID)
		if preview := strings.TrimSpace(doc.Preview); preview != "" {
			runes := []rune(preview)
			if len(runes) > maxPreviewChars {
				preview = string(runes[:maxPreviewChars]) + "..."
			}
			fmt.Fprintf(&b, ": %s", strings.ReplaceAll(preview, "\n", " "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
