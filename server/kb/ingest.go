package kb

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deskpilot/deskpilot/plugin/ai"
)

// embedConcurrency bounds parallel embedding calls per document so a large
// knowledge base does not flood the provider.
const embedConcurrency = 3

// ChunkStore persists embedded chunks so the index can be rebuilt without
// re-embedding the whole knowledge base.
type ChunkStore interface {
	ReplaceDocumentChunks(ctx context.Context, doc Document, chunks []Chunk) error
	ListChunks(ctx context.Context) ([]Chunk, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// IngestReport summarizes a multi-document ingestion run.
type IngestReport struct {
	Documents int
	Chunks    int
	Failed    []string
}

// Ingestor runs the chunk, embed, index pipeline for knowledge base
// documents. The store is optional; without one the index is memory-only.
type Ingestor struct {
	embedder ai.Embedder
	index    *Index
	store    ChunkStore
	logger   *slog.Logger

	chunkSize    int
	chunkOverlap int
}

// NewIngestor builds an ingestor. Non-positive chunk parameters fall back
// to the defaults.
func NewIngestor(embedder ai.Embedder, index *Index, store ChunkStore, logger *slog.Logger, chunkSize, chunkOverlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
		chunkOverlap = DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		embedder:     embedder,
		index:        index,
		store:        store,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestDocument chunks and embeds one document, then swaps its chunks into
// the index. Existing entries for the document are removed first so a
// re-ingested document that shrank leaves no stale chunks behind.
func (ing *Ingestor) IngestDocument(ctx context.Context, doc Document) ([]Chunk, error) {
	chunks, err := ChunkDocument(doc, ing.chunkSize, ing.chunkOverlap)
	if err != nil {
		return nil, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(embedConcurrency)
	for i := range chunks {
		i := i
		group.Go(func() error {
			vector, err := ing.embedder.Embed(groupCtx, chunks[i].Text)
			if err != nil {
				return err
			}
			chunks[i].Embedding = vector
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	ing.index.DeleteDocument(doc.ID)
	for i := range chunks {
		ing.index.Upsert(chunks[i], chunks[i].Embedding)
	}

	if ing.store != nil {
		if err := ing.store.ReplaceDocumentChunks(ctx, doc, chunks); err != nil {
			return nil, err
		}
	}

	ing.logger.Info("document ingested",
		slog.String("document_id", doc.ID),
		slog.Int("chunks", len(chunks)))
	return chunks, nil
}

// IngestAll ingests each document in turn. A failing document is logged and
// reported but does not abort the rest, except when the context itself is
// done.
func (ing *Ingestor) IngestAll(ctx context.Context, docs []Document) (IngestReport, error) {
	var report IngestReport
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		chunks, err := ing.IngestDocument(ctx, doc)
		if err != nil {
			ing.logger.Warn("document ingest failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()))
			report.Failed = append(report.Failed, doc.ID)
			continue
		}
		report.Documents++
		report.Chunks += len(chunks)
	}
	return report, nil
}

// DeleteDocument removes a document's chunks from both the index and the
// store. The returned count is the number of index entries dropped.
func (ing *Ingestor) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if ing.store != nil {
		if err := ing.store.DeleteDocument(ctx, documentID); err != nil {
			return 0, err
		}
	}
	removed := ing.index.DeleteDocument(documentID)
	ing.logger.Info("document deleted",
		slog.String("document_id", documentID),
		slog.Int("chunks", removed))
	return removed, nil
}

// RebuildFromStore reloads every persisted chunk into the index, the warm
// start path that skips re-embedding.
func (ing *Ingestor) RebuildFromStore(ctx context.Context) (int, error) {
	if ing.store == nil {
		return 0, nil
	}
	chunks, err := ing.store.ListChunks(ctx)
	if err != nil {
		return 0, err
	}
	ing.index.Rebuild(chunks)
	ing.logger.Info("index rebuilt from store", slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}
