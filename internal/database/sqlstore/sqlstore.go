// Package sqlstore implements the roster and the attendance ledger on
// database/sql. The SQLite, PostgreSQL and MariaDB backends share it and differ
// only in their Dialect and in how write transactions are run.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
)

// Dialect describes the SQL differences between drivers.
type Dialect struct {
	Name string
	// Numbered rewrites "?" placeholders to "$1", "$2", ...
	Numbered bool
	// Returning fetches generated ids with INSERT ... RETURNING id instead of LastInsertId.
	Returning bool
	// IsUniqueViolation recognizes the driver's unique-constraint error.
	IsUniqueViolation func(error) bool
}

// Rebind converts a query written with "?" placeholders to the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) uniqueViolation(err error) bool {
	return d.IsUniqueViolation != nil && d.IsUniqueViolation(err)
}

// TxFn is a unit of work run inside one transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// TxRunner runs write transactions. SQLite funnels them through a single
// writer goroutine; server databases run them directly.
type TxRunner interface {
	Do(ctx context.Context, fn TxFn) error
}

// DirectRunner runs each transaction on the caller's goroutine.
type DirectRunner struct {
	DB *sql.DB
}

// Do begins a transaction, runs fn and commits, rolling back on error.
func (r DirectRunner) Do(ctx context.Context, fn TxFn) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Store is a database.RosterWriter and a database.Ledger.
type Store struct {
	db      *sql.DB
	writer  TxRunner
	dialect Dialect
	now     func() time.Time
}

// New creates a store. Reads go to db directly; writes go through writer.
func New(db *sql.DB, writer TxRunner, dialect Dialect) *Store {
	return &Store{
		db:      db,
		writer:  writer,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the timestamp source used by the ledger.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// NameKey is the uniqueness key of a display name.
func NameKey(name string) string {
	return facematch.NormalizePersonName(name)
}

// ---- roster ----

// ListAll returns every identity ordered by id, which is enrollment order.
func (s *Store) ListAll(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, name, embedding_path, created_at
		FROM students
		ORDER BY id
	`))
	if err != nil {
		return nil, database.NewStorageError("list students", err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, database.NewStorageError("scan student", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStorageError("iterate students", err)
	}
	return out, nil
}

// GetByName looks an identity up by normalized name. Returns nil if absent.
func (s *Store) GetByName(ctx context.Context, name string) (*database.Identity, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, name, embedding_path, created_at
		FROM students
		WHERE name_key = ?
	`), NameKey(name))
	id, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.NewStorageError("get student", err)
	}
	return &id, nil
}

// Count returns the number of enrolled identities.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, database.NewStorageError("count students", err)
	}
	return n, nil
}

// Insert adds an identity. A name whose key is taken fails with ErrDuplicateIdentity.
func (s *Store) Insert(ctx context.Context, name, signatureRef string) (database.Identity, error) {
	name = strings.TrimSpace(name)
	key := NameKey(name)
	if key == "" {
		return database.Identity{}, database.ErrInvalidName
	}
	if facematch.IsReservedName(name) {
		return database.Identity{}, fmt.Errorf("insert %q: name is reserved: %w", name, database.ErrInvalidName)
	}
	identity := database.Identity{
		Name:         name,
		SignatureRef: signatureRef,
		CreatedAt:    s.now(),
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM students WHERE name_key = ?`), key).Scan(&exists)
		if err == nil {
			return fmt.Errorf("insert %q: %w", name, database.ErrDuplicateIdentity)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return database.NewStorageError("check student", err)
		}

		id, err := s.insertID(ctx, tx, `
			INSERT INTO students (name, name_key, embedding_path, created_at)
			VALUES (?, ?, ?, ?)
		`, name, key, signatureRef, identity.CreatedAt.UnixNano())
		if s.dialect.uniqueViolation(err) {
			return fmt.Errorf("insert %q: %w", name, database.ErrDuplicateIdentity)
		}
		if err != nil {
			return database.NewStorageError("insert student", err)
		}
		identity.ID = id
		return nil
	})
	if err != nil {
		return database.Identity{}, err
	}
	return identity, nil
}

func (s *Store) insertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	if s.dialect.Returning {
		var id int64
		err := tx.QueryRowContext(ctx, s.q(strings.TrimSpace(query)+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := tx.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (database.Identity, error) {
	var (
		id      database.Identity
		created int64
	)
	if err := row.Scan(&id.ID, &id.Name, &id.SignatureRef, &created); err != nil {
		return database.Identity{}, err
	}
	id.CreatedAt = time.Unix(0, created).UTC()
	return id, nil
}

// ---- ledger ----

// Record appends one attendance entry.
func (s *Store) Record(ctx context.Context, name string) (database.AttendanceEntry, error) {
	entries, err := s.RecordBatch(ctx, []string{name})
	if err != nil {
		return database.AttendanceEntry{}, err
	}
	return entries[0], nil
}

// RecordBatch appends one entry per name in a single transaction. All entries
// share one timestamp; their ids follow the order of names.
func (s *Store) RecordBatch(ctx context.Context, names []string) ([]database.AttendanceEntry, error) {
	if len(names) == 0 {
		return nil, nil
	}
	now := s.now()
	out := make([]database.AttendanceEntry, 0, len(names))

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		out = out[:0]
		for _, name := range names {
			id, err := s.insertID(ctx, tx, `INSERT INTO attendance (name, date) VALUES (?, ?)`, name, now.UnixNano())
			if err != nil {
				return database.NewStorageError("record attendance", err)
			}
			out = append(out, database.AttendanceEntry{ID: id, Name: name, Timestamp: now})
		}
		return nil
	})
	if err != nil {
		return nil, database.NewStorageError("record attendance", err)
	}
	return out, nil
}

// EntryFor returns the newest entry for name.
func (s *Store) EntryFor(ctx context.Context, name string) (database.AttendanceEntry, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, name, date
		FROM attendance
		WHERE name = ?
		ORDER BY date DESC, id DESC
		LIMIT 1
	`), name)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return database.AttendanceEntry{}, fmt.Errorf("entry for %q: %w", name, database.ErrEntryNotFound)
	}
	if err != nil {
		return database.AttendanceEntry{}, database.NewStorageError("get attendance entry", err)
	}
	return e, nil
}

// History returns every entry, newest first.
func (s *Store) History(ctx context.Context) ([]database.AttendanceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date
		FROM attendance
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, database.NewStorageError("list attendance", err)
	}
	defer rows.Close()

	var out []database.AttendanceEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, database.NewStorageError("scan attendance", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, database.NewStorageError("iterate attendance", err)
	}
	return out, nil
}

// Clear deletes every entry and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM attendance`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, database.NewStorageError("clear attendance", err)
	}
	return n, nil
}

func scanEntry(row scanner) (database.AttendanceEntry, error) {
	var (
		e    database.AttendanceEntry
		date int64
	)
	if err := row.Scan(&e.ID, &e.Name, &date); err != nil {
		return database.AttendanceEntry{}, err
	}
	e.Timestamp = time.Unix(0, date).UTC()
	return e, nil
}

var (
	_ database.RosterWriter = (*Store)(nil)
	_ database.Ledger       = (*Store)(nil)
)
