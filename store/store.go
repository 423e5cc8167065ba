// Package store provides database access for knowledge base records and
// tickets behind a driver interface.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/server/kb"
	"github.com/deskpilot/deskpilot/server/support"
	"github.com/deskpilot/deskpilot/store/cache"
)

// ErrVectorSearchUnsupported marks drivers without in-database vector
// search. Callers fall back to the in-memory index.
var ErrVectorSearchUnsupported = errors.New("vector search requires PostgreSQL with the pgvector extension")

// Store provides access to all persisted objects. It adapts the raw driver
// to the pipeline's ChunkStore and TicketStore boundaries.
type Store struct {
	profile *profile.Profile
	driver  Driver

	ticketCache *cache.Cache
}

// New creates a Store over a driver.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		ticketCache: cache.New(cache.Config{
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
			MaxItems:        500,
		}),
	}
}

// GetDriver exposes the underlying driver.
func (s *Store) GetDriver() Driver { return s.driver }

// Migrate ensures the schema exists.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// Close releases the driver and stops the cache.
func (s *Store) Close() error {
	s.ticketCache.Close()
	return s.driver.Close()
}

// ReplaceDocumentChunks persists a document and its embedded chunks,
// replacing any previous chunk set for the document.
func (s *Store) ReplaceDocumentChunks(ctx context.Context, doc kb.Document, chunks []kb.Chunk) error {
	record := &KnowledgeDocument{
		ID:        doc.ID,
		Title:     doc.Title,
		Text:      doc.Text,
		Metadata:  doc.Metadata,
		CreatedTs: time.Now().Unix(),
	}
	if err := s.driver.UpsertDocument(ctx, record); err != nil {
		return errors.Wrapf(err, "upsert document %s", doc.ID)
	}

	rows := make([]*KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = &KnowledgeChunk{
			DocumentID: c.DocumentID,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			Embedding:  c.Embedding,
		}
	}
	if err := s.driver.ReplaceChunks(ctx, doc.ID, rows); err != nil {
		return errors.Wrapf(err, "replace chunks for document %s", doc.ID)
	}
	return nil
}

// ListChunks loads every persisted chunk for index rebuild.
func (s *Store) ListChunks(ctx context.Context) ([]kb.Chunk, error) {
	rows, err := s.driver.ListChunks(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list chunks")
	}
	chunks := make([]kb.Chunk, len(rows))
	for i, row := range rows {
		chunks[i] = kb.Chunk{
			DocumentID: row.DocumentID,
			Ordinal:    row.Ordinal,
			Text:       row.Text,
			Embedding:  row.Embedding,
		}
	}
	return chunks, nil
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	return s.driver.DeleteDocument(ctx, documentID)
}

// CreateTicket persists a ticket payload from the pipeline.
func (s *Store) CreateTicket(ctx context.Context, payload support.TicketPayload) error {
	ticket := &Ticket{
		TicketID:       payload.TicketID,
		ConversationID: payload.ConversationID,
		Status:         "Open",
		Category:       string(payload.Category),
		Priority:       string(payload.Priority),
		Sentiment:      string(payload.Sentiment),
		Tags:           payload.Tags,
		Summary:        payload.Summary,
		Transcript:     payload.Transcript,
		CreatedTs:      payload.CreatedAt.Unix(),
	}
	if err := s.driver.CreateTicket(ctx, ticket); err != nil {
		return errors.Wrapf(err, "create ticket %s", payload.TicketID)
	}
	s.ticketCache.Delete(payload.TicketID)
	return nil
}

// FindTicket looks one ticket up by id, serving repeated lookups from the
// cache. A missing ticket returns (nil, nil).
func (s *Store) FindTicket(ctx context.Context, ticketID string) (*support.TicketRecord, error) {
	if cached, ok := s.ticketCache.Get(ticketID); ok {
		return cached.(*support.TicketRecord), nil
	}

	ticket, err := s.driver.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, errors.Wrapf(err, "get ticket %s", ticketID)
	}
	if ticket == nil {
		return nil, nil
	}

	record := &support.TicketRecord{
		TicketID:       ticket.TicketID,
		ConversationID: ticket.ConversationID,
		Status:         ticket.Status,
		Category:       support.Category(ticket.Category),
		Priority:       support.Priority(ticket.Priority),
		Sentiment:      support.Sentiment(ticket.Sentiment),
		Tags:           ticket.Tags,
		Summary:        ticket.Summary,
		Transcript:     ticket.Transcript,
		CreatedAt:      time.Unix(ticket.CreatedTs, 0),
	}
	s.ticketCache.Set(ticketID, record)
	return record, nil
}

// ListTickets lists persisted tickets.
func (s *Store) ListTickets(ctx context.Context, find *FindTicket) ([]*Ticket, error) {
	return s.driver.ListTickets(ctx, find)
}

// UpdateTicketStatus changes a ticket's status and invalidates its cache
// entry.
func (s *Store) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	if err := s.driver.UpdateTicketStatus(ctx, ticketID, status); err != nil {
		return errors.Wrapf(err, "update ticket %s", ticketID)
	}
	s.ticketCache.Delete(ticketID)
	return nil
}

var (
	_ kb.ChunkStore       = (*Store)(nil)
	_ support.TicketStore = (*Store)(nil)
)
