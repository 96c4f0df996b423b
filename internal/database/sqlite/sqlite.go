// Package sqlite is the default storage backend: the roster and the ledger in
// one SQLite file, opened through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/sqlstore"
)

// Dialect is the SQLite flavor of the shared store.
var Dialect = sqlstore.Dialect{
	Name:              config.BackendSQLite,
	IsUniqueViolation: isUniqueViolation,
}

func init() {
	database.RegisterBackend(config.BackendSQLite, openBackend)
}

// Open opens (creating if needed) the database file and applies migrations.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "./data/rollcall.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	// Per-connection pragmas: foreign keys, WAL, relaxed fsync and a busy timeout.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// NewStore wires the shared store to a writer worker on db. The returned
// close function stops the worker and closes db.
func NewStore(db *sql.DB) (*sqlstore.Store, func() error) {
	w := NewWorker(db)
	closeFn := func() error {
		w.Close()
		return db.Close()
	}
	return sqlstore.New(db, w, Dialect), closeFn
}

func openBackend(ctx context.Context, cfg *config.Config) (*database.Backend, error) {
	db, err := Open(ctx, cfg.Database.SQLitePath)
	if err != nil {
		return nil, err
	}
	store, closeFn := NewStore(db)
	return database.NewBackend(store, store, nil, closeFn), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
