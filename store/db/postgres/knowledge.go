package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/store"
)

func (d *DB) UpsertDocument(ctx context.Context, doc *store.KnowledgeDocument) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document metadata")
	}

	stmt := `
		INSERT INTO document (id, title, text, metadata, created_ts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET title = EXCLUDED.title, text = EXCLUDED.text, metadata = EXCLUDED.metadata
	`
	if _, err := d.db.ExecContext(ctx, stmt, doc.ID, doc.Title, doc.Text, string(metadata), doc.CreatedTs); err != nil {
		return errors.Wrap(err, "failed to upsert document")
	}
	return nil
}

func (d *DB) ListDocuments(ctx context.Context) ([]*store.KnowledgeDocument, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, text, metadata, created_ts
		FROM document
		ORDER BY id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.KnowledgeDocument{}
	for rows.Next() {
		var doc store.KnowledgeDocument
		var metadata []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text, &metadata, &doc.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal document metadata")
		}
		list = append(list, &doc)
	}
	return list, rows.Err()
}

func (d *DB) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = $1", documentID); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	return nil
}

// ReplaceChunks swaps the document's chunk set in one transaction.
func (d *DB) ReplaceChunks(ctx context.Context, documentID string, chunks []*store.KnowledgeChunk) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk WHERE document_id = $1", documentID); err != nil {
		return errors.Wrap(err, "failed to delete old chunks")
	}

	stmt := "INSERT INTO chunk (document_id, ordinal, text, embedding) VALUES ($1, $2, $3, $4)"
	for _, chunk := range chunks {
		vector := pgvector.NewVector(chunk.Embedding)
		if _, err := tx.ExecContext(ctx, stmt, chunk.DocumentID, chunk.Ordinal, chunk.Text, vector); err != nil {
			return errors.Wrap(err, "failed to insert chunk")
		}
	}

	return tx.Commit()
}

func (d *DB) ListChunks(ctx context.Context, documentID *string) ([]*store.KnowledgeChunk, error) {
	where, args := []string{"1 = 1"}, []any{}
	if documentID != nil {
		where, args = append(where, "document_id = $1"), append(args, *documentID)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT document_id, ordinal, text, embedding
		FROM chunk
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY document_id, ordinal
	`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.KnowledgeChunk{}
	for rows.Next() {
		var chunk store.KnowledgeChunk
		var vector pgvector.Vector
		if err := rows.Scan(&chunk.DocumentID, &chunk.Ordinal, &chunk.Text, &vector); err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		chunk.Embedding = vector.Slice()
		list = append(list, &chunk)
	}
	return list, rows.Err()
}

// SearchChunksByVector performs cosine similarity search with pgvector.
// The <=> operator computes cosine distance, so similarity is 1 - distance.
func (d *DB) SearchChunksByVector(ctx context.Context, embedding []float32, limit int) ([]*store.KnowledgeChunk, []float64, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT document_id, ordinal, text, embedding, 1 - (embedding <=> $1) AS similarity
		FROM chunk
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to search chunks by vector")
	}
	defer rows.Close()

	chunks := []*store.KnowledgeChunk{}
	scores := []float64{}
	for rows.Next() {
		var chunk store.KnowledgeChunk
		var vector pgvector.Vector
		var score float64
		if err := rows.Scan(&chunk.DocumentID, &chunk.Ordinal, &chunk.Text, &vector, &score); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan scored chunk")
		}
		chunk.Embedding = vector.Slice()
		chunks = append(chunks, &chunk)
		scores = append(scores, score)
	}
	return chunks, scores, rows.Err()
}
