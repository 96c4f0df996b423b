// Package mariadb is the MariaDB/MySQL storage backend for the roster and the
// attendance ledger.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/sqlstore"
)

// erDupEntry is the server error number for a unique key violation.
const erDupEntry = 1062

// Dialect is the MariaDB flavor of the shared store.
var Dialect = sqlstore.Dialect{
	Name:              config.BackendMariaDB,
	IsUniqueViolation: isUniqueViolation,
}

func init() {
	database.RegisterBackend(config.BackendMariaDB, openBackend)
}

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// NewStore returns the shared roster/ledger store on this pool.
func (p *Pool) NewStore() *sqlstore.Store {
	return sqlstore.New(p.db, sqlstore.DirectRunner{DB: p.db}, Dialect)
}

func openBackend(ctx context.Context, cfg *config.Config) (*database.Backend, error) {
	pool, err := NewPool(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	store := pool.NewStore()
	return database.NewBackend(store, store, nil, pool.Close), nil
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == erDupEntry
}
