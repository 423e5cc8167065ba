package kb

import (
	"context"

	"github.com/deskpilot/deskpilot/plugin/ai"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 3

// Retriever embeds a query and searches the index for its nearest chunks.
type Retriever struct {
	embedder ai.Embedder
	index    *Index
	topK     int
}

// NewRetriever wires an embedder to an index. topK values below 1 fall back
// to DefaultTopK.
func NewRetriever(embedder ai.Embedder, index *Index, topK int) *Retriever {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve returns the top-k chunks most similar to the query. The error is
// non-nil only when embedding fails; an empty index produces an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string) (RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.index.Search(vector, r.topK), nil
}

// TopK reports the configured result width.
func (r *Retriever) TopK() int { return r.topK }
