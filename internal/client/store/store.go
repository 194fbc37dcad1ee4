// Package store opens the client's local SQLite database and vends the
// repositories bound to it.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/pawkit/pawkit/internal/client/migrations"
	"github.com/pawkit/pawkit/internal/client/repositories/meta"
	"github.com/pawkit/pawkit/internal/client/repositories/queue"
	"github.com/pawkit/pawkit/internal/client/repositories/records"
)

// Store bundles the local database handle with its repositories. The raw DB
// is exposed so services can run the optimistic write and the queue entry in
// one transaction via dbx.WithTx.
type Store struct {
	DB      *sql.DB
	Records records.Repository
	Queue   queue.Repository
	Meta    meta.Repository
}

// RunMigrations applies the embedded goose migrations to the local store.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn, migrates it,
// and returns the repository set.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// single writer: SQLite serializes writes anyway, and a single pooled
	// connection keeps in-memory databases coherent
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		DB:      db,
		Records: records.NewSQLiteRepository(db),
		Queue:   queue.NewSQLiteRepository(db),
		Meta:    meta.NewSQLiteRepository(db),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}
