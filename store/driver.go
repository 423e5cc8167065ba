package store

import (
	"context"
	"database/sql"
)

// KnowledgeDocument is a persisted knowledge base document.
type KnowledgeDocument struct {
	ID        string
	Title     string
	Text      string
	Metadata  map[string]string
	CreatedTs int64
}

// KnowledgeChunk is one embedded chunk of a document, the portable record
// the index is rebuilt from.
type KnowledgeChunk struct {
	DocumentID string
	Ordinal    int
	Text       string
	Embedding  []float32
}

// Ticket is a persisted support ticket.
type Ticket struct {
	TicketID       string
	ConversationID string
	Status         string
	Category       string
	Priority       string
	Sentiment      string
	Tags           []string
	Summary        string
	Transcript     string
	CreatedTs      int64
}

// FindTicket filters ticket listings.
type FindTicket struct {
	ConversationID *string
	Status         *string
	Limit          int
}

// Driver is the database access interface. SQLite covers development and
// small deployments; PostgreSQL adds pgvector-backed similarity search.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// Knowledge base model related methods.
	UpsertDocument(ctx context.Context, doc *KnowledgeDocument) error
	ListDocuments(ctx context.Context) ([]*KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ReplaceChunks(ctx context.Context, documentID string, chunks []*KnowledgeChunk) error
	ListChunks(ctx context.Context, documentID *string) ([]*KnowledgeChunk, error)

	// SearchChunksByVector performs similarity search in the database.
	// Drivers without vector support return ErrVectorSearchUnsupported.
	SearchChunksByVector(ctx context.Context, embedding []float32, limit int) ([]*KnowledgeChunk, []float64, error)

	// Ticket model related methods.
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, ticketID string) (*Ticket, error)
	ListTickets(ctx context.Context, find *FindTicket) ([]*Ticket, error)
	UpdateTicketStatus(ctx context.Context, ticketID, status string) error
}
