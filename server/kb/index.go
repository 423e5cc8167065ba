package kb

import (
	"math"
	"sort"
	"sync"
)

type chunkKey struct {
	documentID string
	ordinal    int
}

type indexEntry struct {
	chunk  *Chunk
	vector []float32 // L2-normalized at insert time
}

// Index is an in-memory vector index over chunks. Reads may proceed
// concurrently; upserts are mutually exclusive with each other and with
// reads (reader-writer discipline). Append-only during ingestion and fully
// rebuildable from the persisted chunk set.
type Index struct {
	mu      sync.RWMutex
	entries map[chunkKey]*indexEntry
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[chunkKey]*indexEntry)}
}

// Upsert stores the chunk under its (document id, ordinal) key, replacing
// any previous entry. Ingesting the same document twice therefore does not
// duplicate chunks. The vector is copied and L2-normalized; embedding
// magnitude carries no meaning, only direction.
func (idx *Index) Upsert(chunk Chunk, vector []float32) {
	normalized := normalize(vector)
	stored := chunk
	stored.Embedding = normalized

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[chunkKey{chunk.DocumentID, chunk.Ordinal}] = &indexEntry{
		chunk:  &stored,
		vector: normalized,
	}
}

// Search returns the k highest-scoring entries by cosine similarity against
// the query vector. Ties break by document id, then lower ordinal, keeping
// results stable and deterministic. An empty index yields an empty result,
// not an error.
func (idx *Index) Search(queryVector []float32, k int) RetrievalResult {
	if k <= 0 {
		return nil
	}
	query := normalize(queryVector)

	idx.mu.RLock()
	scored := make([]ScoredChunk, 0, len(idx.entries))
	for _, entry := range idx.entries {
		scored = append(scored, ScoredChunk{
			Chunk: entry.chunk,
			Score: dot(query, entry.vector),
		})
	}
	idx.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Chunk.DocumentID != scored[j].Chunk.DocumentID {
			return scored[i].Chunk.DocumentID < scored[j].Chunk.DocumentID
		}
		return scored[i].Chunk.Ordinal < scored[j].Chunk.Ordinal
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// DeleteDocument removes all entries for the document. Used when a document
// is removed or re-ingested with fewer chunks.
func (idx *Index) DeleteDocument(documentID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	removed := 0
	for key := range idx.entries {
		if key.documentID == documentID {
			delete(idx.entries, key)
			removed++
		}
	}
	return removed
}

// Rebuild replaces the whole index with the given embedded chunks, the full
// rebuild path used after re-chunking.
func (idx *Index) Rebuild(chunks []Chunk) {
	entries := make(map[chunkKey]*indexEntry, len(chunks))
	for i := range chunks {
		c := chunks[i]
		normalized := normalize(c.Embedding)
		c.Embedding = normalized
		entries[chunkKey{c.DocumentID, c.Ordinal}] = &indexEntry{chunk: &c, vector: normalized}
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// normalize returns an L2-normalized copy of v. A zero vector is returned
// as an equal-length zero vector so it scores 0 against everything.
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
