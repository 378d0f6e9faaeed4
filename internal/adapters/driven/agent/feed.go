// Package agent holds what the agent runner adapters share: a channel
// backed event feed fed by a producer goroutine.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

// Ensure Feed implements the interface.
var _ driven.EventFeed = (*Feed)(nil)

// Emitter hands one raw event to the feed. It returns false once the feed
// is closed; producers must stop then.
type Emitter func(raw []byte) bool

// Producer generates the events of a run. A nil return ends the feed with
// io.EOF; an error is returned by the next call to Next.
type Producer func(ctx context.Context, emit Emitter) error

type item struct {
	raw domain.RawEvent
	err error
}

// Feed is an EventFeed fed by a producer goroutine.
type Feed struct {
	items  chan item
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewFeed starts produce in its own goroutine.
func NewFeed(ctx context.Context, produce Producer) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		items:  make(chan item),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		defer close(f.items)

		emit := func(raw []byte) bool {
			select {
			case f.items <- item{raw: raw}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if err := produce(ctx, emit); err != nil && ctx.Err() == nil {
			select {
			case f.items <- item{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return f
}

// Next blocks until the next raw event is available.
func (f *Feed) Next(ctx context.Context) (domain.RawEvent, error) {
	select {
	case it, ok := <-f.items:
		if !ok {
			return nil, io.EOF
		}
		return it.raw, it.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the producer and waits for it to exit.
func (f *Feed) Close() error {
	f.once.Do(func() {
		f.cancel()
		<-f.done
	})
	return nil
}

// EmitJSON marshals v and emits it. It returns the marshal error, or
// ctx.Err() once the feed has stopped accepting events.
func EmitJSON(ctx context.Context, emit Emitter, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if !emit(raw) {
		return ctx.Err()
	}
	return nil
}
