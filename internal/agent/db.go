// Package agent wires the device-side components: local event store, sync
// queue, shift service and sync dispatcher.
package agent

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldops/shiftsync/internal/agent/migrations"
	"github.com/fieldops/shiftsync/internal/agent/outbox"
	"github.com/fieldops/shiftsync/internal/agent/store"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles the repositories backed by the agent's local SQLite
// database, together with the raw handle the service needs to open
// cross-repository transactions.
type Repositories struct {
	DB    *sql.DB
	Store store.Repository
	Queue outbox.Queue
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local database at dsn, applies
// migrations and returns the ready repositories. SQLite gives the agent the
// transactional read-modify-write the original storage layer lacked.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// The local store has exactly one writer; a single connection keeps
	// SQLite's locking out of the picture.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		DB:    db,
		Store: store.NewSQLiteRepository(db),
		Queue: outbox.NewSQLiteQueue(db),
	}, nil
}
