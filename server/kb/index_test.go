package kb

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(xs ...float32) []float32 { return xs }

func TestIndexSearchEmpty(t *testing.T) {
	idx := NewIndex()
	result := idx.Search(vec(1, 0, 0), 3)
	assert.Empty(t, result)
}

func TestIndexSearchOrdering(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(Chunk{DocumentID: "doc-a", Ordinal: 0, Text: "north"}, vec(1, 0))
	idx.Upsert(Chunk{DocumentID: "doc-b", Ordinal: 0, Text: "east"}, vec(0, 1))
	idx.Upsert(Chunk{DocumentID: "doc-c", Ordinal: 0, Text: "northeast"}, vec(1, 1))

	result := idx.Search(vec(1, 0), 3)
	require.Len(t, result, 3)
	assert.Equal(t, "doc-a", result[0].Chunk.DocumentID)
	assert.InDelta(t, 1.0, result[0].Score, 1e-6)
	assert.Equal(t, "doc-c", result[1].Chunk.DocumentID)
	assert.Equal(t, "doc-b", result[2].Chunk.DocumentID)
	assert.InDelta(t, 0.0, result[2].Score, 1e-6)
}

func TestIndexSearchTieBreak(t *testing.T) {
	idx := NewIndex()
	// Identical vectors: ties must resolve by document id, then ordinal.
	idx.Upsert(Chunk{DocumentID: "doc-b", Ordinal: 1}, vec(1, 0))
	idx.Upsert(Chunk{DocumentID: "doc-b", Ordinal: 0}, vec(1, 0))
	idx.Upsert(Chunk{DocumentID: "doc-a", Ordinal: 2}, vec(1, 0))

	result := idx.Search(vec(1, 0), 3)
	require.Len(t, result, 3)
	assert.Equal(t, "doc-a#2", result[0].Chunk.Ref())
	assert.Equal(t, "doc-b#0", result[1].Chunk.Ref())
	assert.Equal(t, "doc-b#1", result[2].Chunk.Ref())
}

func TestIndexSearchTruncatesToK(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 10; i++ {
		idx.Upsert(Chunk{DocumentID: "doc", Ordinal: i}, vec(1, float32(i)))
	}
	result := idx.Search(vec(1, 0), 3)
	assert.Len(t, result, 3)
	assert.Empty(t, idx.Search(vec(1, 0), 0))
}

func TestIndexUpsertIdempotent(t *testing.T) {
	idx := NewIndex()
	chunk := Chunk{DocumentID: "doc", Ordinal: 0, Text: "v1"}
	idx.Upsert(chunk, vec(1, 0))
	chunk.Text = "v2"
	idx.Upsert(chunk, vec(0, 1))

	assert.Equal(t, 1, idx.Len())
	result := idx.Search(vec(0, 1), 1)
	require.Len(t, result, 1)
	assert.Equal(t, "v2", result[0].Chunk.Text)
	assert.InDelta(t, 1.0, result[0].Score, 1e-6)
}

func TestIndexDeleteDocument(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(Chunk{DocumentID: "keep", Ordinal: 0}, vec(1, 0))
	idx.Upsert(Chunk{DocumentID: "drop", Ordinal: 0}, vec(1, 0))
	idx.Upsert(Chunk{DocumentID: "drop", Ordinal: 1}, vec(0, 1))

	removed := idx.DeleteDocument("drop")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, idx.Len())
	result := idx.Search(vec(1, 0), 5)
	require.Len(t, result, 1)
	assert.Equal(t, "keep", result[0].Chunk.DocumentID)
}

func TestIndexRebuild(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(Chunk{DocumentID: "old", Ordinal: 0}, vec(1, 0))

	idx.Rebuild([]Chunk{
		{DocumentID: "new", Ordinal: 0, Embedding: vec(0, 2)},
		{DocumentID: "new", Ordinal: 1, Embedding: vec(2, 0)},
	})

	assert.Equal(t, 2, idx.Len())
	result := idx.Search(vec(0, 1), 1)
	require.Len(t, result, 1)
	assert.Equal(t, "new#0", result[0].Chunk.Ref())
	// Stored vectors are normalized regardless of input magnitude.
	assert.InDelta(t, 1.0, result[0].Score, 1e-6)
}

func TestIndexZeroVectorScoresZero(t *testing.T) {
	idx := NewIndex()
	idx.Upsert(Chunk{DocumentID: "doc", Ordinal: 0}, vec(0, 0, 0))
	result := idx.Search(vec(1, 0, 0), 1)
	require.Len(t, result, 1)
	assert.Zero(t, result[0].Score)
}

func TestIndexConcurrentAccess(t *testing.T) {
	idx := NewIndex()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				idx.Upsert(Chunk{DocumentID: fmt.Sprintf("doc-%d", w), Ordinal: i}, vec(1, float32(i)))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				idx.Search(vec(1, 1), 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, idx.Len())
}
