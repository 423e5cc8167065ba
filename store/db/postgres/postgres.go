// Package postgres implements the store driver on PostgreSQL. It is the
// production driver: chunks are stored as pgvector columns and similarity
// search runs in the database.
package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection from the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS document (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunk (
	document_id TEXT NOT NULL REFERENCES document (id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding vector NOT NULL,
	PRIMARY KEY (document_id, ordinal)
);

CREATE TABLE IF NOT EXISTS ticket (
	ticket_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Open',
	category TEXT NOT NULL,
	priority TEXT NOT NULL,
	sentiment TEXT NOT NULL,
	tags JSONB NOT NULL DEFAULT '[]',
	summary TEXT NOT NULL,
	transcript TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ticket_conversation_id ON ticket (conversation_id);
`

// Migrate creates the schema and the pgvector extension when absent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate postgres schema")
	}
	return nil
}
