package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/database/sqlite"
	"github.com/kozaktomas/rollcall/internal/database/sqlstore"
)

// openTestDB returns a migrated database in a fresh temp directory. It is
// closed automatically when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("openTestDB: %v", err)
	}
	return conn
}

// newTestStore returns a store over a fresh database with a clock that
// advances one second per call.
func newTestStore(t *testing.T) (*sqlstore.Store, *sql.DB) {
	t.Helper()

	conn := openTestDB(t)
	store, closeFn := sqlite.NewStore(conn)
	t.Cleanup(func() { _ = closeFn() })

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	return store, conn
}
