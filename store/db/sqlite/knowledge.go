package sqlite

import (
	"context"
	"encoding/json"
	"strings"

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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET title = excluded.title, text = excluded.text, metadata = excluded.metadata
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
		var metadata string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Text, &metadata, &doc.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal document metadata")
		}
		list = append(list, &doc)
	}
	return list, rows.Err()
}

func (d *DB) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM document WHERE id = ?", documentID); err != nil {
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk WHERE document_id = ?", documentID); err != nil {
		return errors.Wrap(err, "failed to delete old chunks")
	}

	stmt := "INSERT INTO chunk (document_id, ordinal, text, embedding) VALUES (?, ?, ?, ?)"
	for _, chunk := range chunks {
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return errors.Wrap(err, "failed to marshal embedding")
		}
		if _, err := tx.ExecContext(ctx, stmt, chunk.DocumentID, chunk.Ordinal, chunk.Text, string(embedding)); err != nil {
			return errors.Wrap(err, "failed to insert chunk")
		}
	}

	return tx.Commit()
}

func (d *DB) ListChunks(ctx context.Context, documentID *string) ([]*store.KnowledgeChunk, error) {
	where, args := []string{"1 = 1"}, []any{}
	if documentID != nil {
		where, args = append(where, "document_id = ?"), append(args, *documentID)
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
		var embedding string
		if err := rows.Scan(&chunk.DocumentID, &chunk.Ordinal, &chunk.Text, &embedding); err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		if err := json.Unmarshal([]byte(embedding), &chunk.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal embedding")
		}
		list = append(list, &chunk)
	}
	return list, rows.Err()
}

// SearchChunksByVector is not supported on SQLite; similarity search runs
// in the in-memory index instead.
func (d *DB) SearchChunksByVector(_ context.Context, _ []float32, _ int) ([]*store.KnowledgeChunk, []float64, error) {
	return nil, nil, store.ErrVectorSearchUnsupported
}
