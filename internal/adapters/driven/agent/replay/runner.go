// Package replay runs agent tasks from a recorded event stream. Each line
// of the recording is one raw event, forwarded as is. Lines starting with
// # are comments.
//
// A line with a "replay" key is a directive rather than an event:
//
//	{"replay": "search", "query": "flood warnings", "top_k": 3}
//	{"replay": "sleep", "ms": 250}
//
// The search directive queries the run's retriever and emits the tool call
// events a live agent would. It is what makes recordings useful for
// exercising the index offline.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/agent"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// Ensure Runner implements the interface.
var _ driven.AgentRunner = (*Runner)(nil)

const maxLine = 4 << 20

// Runner replays a recorded event file.
type Runner struct {
	path  string
	delay time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithDelay pauses between emitted events.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.delay = d
	}
}

// NewRunner creates a runner for the recording at path.
func NewRunner(path string, opts ...Option) (*Runner, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: replay: recording path is required", domain.ErrConfig)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: replay: %w", domain.ErrConfig, err)
	}

	r := &Runner{path: path}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the runner name.
func (r *Runner) Name() string {
	return "replay"
}

// Start opens the recording and replays it through the returned feed.
func (r *Runner) Start(ctx context.Context, req domain.AgentRequest, retriever driven.Retriever) (driven.EventFeed, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("replay: open recording: %w", err)
	}
	logger.Debug("replay: run %s from %s", req.RunID, r.path)

	return agent.NewFeed(ctx, func(ctx context.Context, emit agent.Emitter) error {
		defer f.Close()
		return r.play(ctx, f, retriever, emit)
	}), nil
}

func (r *Runner) play(ctx context.Context, f *os.File, retriever driven.Retriever, emit agent.Emitter) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if d := gjson.GetBytes(line, "replay"); d.Exists() {
			if err := r.directive(ctx, d.String(), gjson.ParseBytes(line), retriever, emit); err != nil {
				return fmt.Errorf("replay: line %d: %w", lineNo, err)
			}
			continue
		}

		if err := r.pause(ctx); err != nil {
			return err
		}
		if !emit(append([]byte(nil), line...)) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("replay: read recording: %w", err)
	}
	return nil
}

func (r *Runner) directive(ctx context.Context, name string, line gjson.Result, retriever driven.Retriever, emit agent.Emitter) error {
	switch name {
	case "sleep":
		t := time.NewTimer(time.Duration(line.Get("ms").Int()) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case "search":
		return r.search(ctx, line, retriever, emit)

	default:
		return fmt.Errorf("unknown directive %q", name)
	}
}

func (r *Runner) search(ctx context.Context, line gjson.Result, retriever driven.Retriever, emit agent.Emitter) error {
	query := line.Get("query").String()
	opts := domain.SearchOptions{TopK: int(line.Get("top_k").Int())}
	line.Get("document_ids").ForEach(func(_, id gjson.Result) bool {
		opts.DocumentIDs = append(opts.DocumentIDs, id.String())
		return true
	})

	args, _ := json.Marshal(map[string]any{"query": query, "top_k": opts.TopK, "document_ids": opts.DocumentIDs})
	tool := map[string]any{
		"tool_name":    "search",
		"tool_call_id": line.Get("id").String(),
		"tool_args":    string(args),
	}
	if err := agent.EmitJSON(ctx, emit, map[string]any{"event": "ToolCallStarted", "tool": tool}); err != nil {
		return err
	}

	if retriever == nil {
		tool["error"] = "no retriever"
		if err := agent.EmitJSON(ctx, emit, map[string]any{"event": "ToolCallError", "tool": tool}); err != nil {
			return err
		}
		return nil
	}

	hits, err := retriever.Search(ctx, query, opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tool["error"] = err.Error()
		if err := agent.EmitJSON(ctx, emit, map[string]any{"event": "ToolCallError", "tool": tool}); err != nil {
			return err
		}
		return nil
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}

	result, err := json.Marshal(hits)
	if err != nil {
		return err
	}
	tool["result"] = string(result)
	if err := agent.EmitJSON(ctx, emit, map[string]any{"event": "ToolCallCompleted", "tool": tool}); err != nil {
		return err
	}
	return nil
}

func (r *Runner) pause(ctx context.Context) error {
	if r.delay <= 0 {
		return nil
	}
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
