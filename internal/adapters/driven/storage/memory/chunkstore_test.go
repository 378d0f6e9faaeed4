package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func chunksFor(docID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{DocumentID: docID, Sequence: i, Text: text}
	}
	return chunks
}

func TestChunkStore_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("clear on start drops entries", func(t *testing.T) {
		store := NewChunkStore()
		require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "a"}, nil))

		require.NoError(t, store.Initialize(ctx, true))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("keep existing entries", func(t *testing.T) {
		store := NewChunkStore()
		require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "a"}, nil))

		require.NoError(t, store.Initialize(ctx, false))
		assert.Equal(t, 1, store.Len())
	})

	t.Run("second call fails", func(t *testing.T) {
		store := NewChunkStore()
		require.NoError(t, store.Initialize(ctx, true))
		assert.ErrorIs(t, store.Initialize(ctx, true), ErrAlreadyInitialized)
	})
}

func TestChunkStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	doc := domain.DocumentRecord{ID: "doc-1", Name: "Report", Status: domain.StatusIndexed}
	require.NoError(t, store.Put(ctx, doc, chunksFor("doc-1", "one", "two")))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Report", got.Name)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_PutReplacesChunkSet(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "d"}, chunksFor("d", "old-0", "old-1", "old-2")))
	before, err := store.Snapshot(ctx, []string{"d"})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "d"}, chunksFor("d", "new-0")))
	after, err := store.Snapshot(ctx, []string{"d"})
	require.NoError(t, err)

	require.Len(t, after, 1)
	require.Len(t, after[0].Chunks, 1)
	assert.Equal(t, "new-0", after[0].Chunks[0].Text)

	// An earlier snapshot still sees the complete previous version.
	require.Len(t, before[0].Chunks, 3)
	assert.Equal(t, "old-2", before[0].Chunks[2].Text)
}

func TestChunkStore_PutCopiesInput(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	chunks := chunksFor("d", "original")
	require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "d"}, chunks))
	chunks[0].Text = "mutated"

	snap, err := store.Snapshot(ctx, []string{"d"})
	require.NoError(t, err)
	assert.Equal(t, "original", snap[0].Chunks[0].Text)
}

func TestChunkStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: "d"}, chunksFor("d", "x")))
	require.NoError(t, store.Delete(ctx, "d"))
	require.NoError(t, store.Delete(ctx, "d"))

	snap, err := store.Snapshot(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestChunkStore_SnapshotAndList(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Put(ctx, domain.DocumentRecord{ID: id}, chunksFor(id, id)))
	}

	all, err := store.Snapshot(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Document.ID)
	assert.Equal(t, "c", all[2].Document.ID)

	some, err := store.Snapshot(ctx, []string{"b", "missing", "b"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "b", some[0].Document.ID)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestChunkStore_ConcurrentPutAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			texts := make([]string, i%5+1)
			for j := range texts {
				texts[j] = fmt.Sprintf("v%d-%d", i, j)
			}
			_ = store.Put(ctx, domain.DocumentRecord{ID: "shared"}, chunksFor("shared", texts...))
		}(i)
		go func() {
			defer wg.Done()
			snap, err := store.Snapshot(ctx, []string{"shared"})
			if err != nil || len(snap) == 0 {
				return
			}
			// Every chunk in one version carries the same version prefix.
			chunks := snap[0].Chunks
			for j, c := range chunks {
				assert.Equal(t, j, c.Sequence)
				assert.Equal(t, chunks[0].Text[:len(chunks[0].Text)-1], c.Text[:len(c.Text)-1])
			}
		}()
	}
	wg.Wait()
}
