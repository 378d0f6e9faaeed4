package agent

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_DeliversInOrderThenEOF(t *testing.T) {
	feed := NewFeed(context.Background(), func(ctx context.Context, emit Emitter) error {
		emit([]byte(`"a"`))
		return EmitJSON(ctx, emit, map[string]string{"delta": "b"})
	})
	defer feed.Close()

	ctx := context.Background()
	raw, err := feed.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(raw))

	raw, err = feed.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"delta":"b"}`, string(raw))

	_, err = feed.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFeed_ProducerError(t *testing.T) {
	boom := errors.New("boom")
	feed := NewFeed(context.Background(), func(_ context.Context, emit Emitter) error {
		emit([]byte(`"a"`))
		return boom
	})
	defer feed.Close()

	_, err := feed.Next(context.Background())
	require.NoError(t, err)

	_, err = feed.Next(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = feed.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestFeed_EmitJSONFailsOnUnencodableEvent(t *testing.T) {
	feed := NewFeed(context.Background(), func(ctx context.Context, emit Emitter) error {
		return EmitJSON(ctx, emit, map[string]any{"delta": make(chan int)})
	})
	defer feed.Close()

	_, err := feed.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode event")

	_, err = feed.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestEmitJSON_StoppedFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := EmitJSON(ctx, func([]byte) bool { return false }, map[string]string{"delta": "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeed_CloseStopsProducer(t *testing.T) {
	stopped := make(chan struct{})
	feed := NewFeed(context.Background(), func(ctx context.Context, emit Emitter) error {
		defer close(stopped)
		for emit([]byte(`"tick"`)) {
		}
		return ctx.Err()
	})

	_, err := feed.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer still running")
	}
}

func TestFeed_NextHonoursContext(t *testing.T) {
	feed := NewFeed(context.Background(), func(ctx context.Context, _ Emitter) error {
		<-ctx.Done()
		return nil
	})
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := feed.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
