// Package db selects a concrete store driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/deskpilot/deskpilot/internal/profile"
	"github.com/deskpilot/deskpilot/store"
	"github.com/deskpilot/deskpilot/store/db/postgres"
	"github.com/deskpilot/deskpilot/store/db/sqlite"
)

// NewDBDriver creates a db driver based on the profile.
//
// SQLite is the default for development and single-node use; vectors are
// stored as JSON and similarity search runs in the in-memory index.
// PostgreSQL is for production and adds pgvector similarity search.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
