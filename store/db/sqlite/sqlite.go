// Package sqlite implements the store driver on SQLite. Vectors are kept
// as JSON text; similarity search is served by the in-memory index, not
// the database.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite serializes writes; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
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
CREATE TABLE IF NOT EXISTS document (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	text TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunk (
	document_id TEXT NOT NULL REFERENCES document (id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding TEXT NOT NULL,
	PRIMARY KEY (document_id, ordinal)
);

CREATE TABLE IF NOT EXISTS ticket (
	ticket_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'Open',
	category TEXT NOT NULL,
	priority TEXT NOT NULL,
	sentiment TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	summary TEXT NOT NULL,
	transcript TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ticket_conversation_id ON ticket (conversation_id);
`

// Migrate creates the schema when absent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}
