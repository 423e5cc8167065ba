// Package kb implements the knowledge base core: document chunking, the
// in-memory vector index and query-time retrieval.
package kb

import "fmt"

// Document is a unit of knowledge owned by the knowledge base.
// Immutable once ingested.
type Document struct {
	ID       string
	Title    string
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded text segment derived from a document, the unit of
// retrieval. Identified by (DocumentID, Ordinal); never mutated after
// creation.
type Chunk struct {
	DocumentID string
	Ordinal    int
	Text       string
	Embedding  []float32
}

// Ref returns the stable chunk reference used in citations.
func (c *Chunk) Ref() string {
	return fmt.Sprintf("%s#%d", c.DocumentID, c.Ordinal)
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// RetrievalResult is an ordered sequence of scored chunks, descending by
// score, length at most K. Empty only when the index is empty.
type RetrievalResult []ScoredChunk

// Best returns the top-ranked chunk, or nil for an empty result.
func (r RetrievalResult) Best() *ScoredChunk {
	if len(r) == 0 {
		return nil
	}
	return &r[0]
}

// BestScore returns the top similarity score, or 0 for an empty result.
func (r RetrievalResult) BestScore() float64 {
	if len(r) == 0 {
		return 0
	}
	return r[0].Score
}

// Refs returns the cited chunk references in rank order.
func (r RetrievalResult) Refs() []string {
	refs := make([]string, len(r))
	for i, sc := range r {
		refs[i] = sc.Chunk.Ref()
	}
	return refs
}
