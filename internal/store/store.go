package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/querysql"
)

const pingTimeout = 5 * time.Second

// driverDialects maps each supported driver to the dialect its
// statements must be rendered in.
var driverDialects = map[string]*querysql.Dialect{
	"sqlite3": querysql.SQLite,
	"pgx":     querysql.Postgres,
}

// Store executes statements on a database handle.
type Store struct {
	db      *sql.DB
	dialect *querysql.Dialect
	maxRows int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRows stops reading after n rows and marks the result truncated.
// n <= 0 reads everything.
func WithMaxRows(n int) Option {
	return func(s *Store) { s.maxRows = n }
}

// WithDialect sets the dialect reported by Dialect (default: MSSQL for New).
func WithDialect(d *querysql.Dialect) Option {
	return func(s *Store) {
		if d != nil {
			s.dialect = d
		}
	}
}

// Open connects with driver ("sqlite3" or "pgx") and verifies the
// connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, ok := driverDialects[driver]
	if !ok {
		return nil, errors.WithHint(errors.Newf("unsupported driver %q", driver), "use sqlite3 or pgx")
	}
	if dsn == "" {
		return nil, errors.WithHint(errors.New("database dsn is required"), "set database.dsn or pass --dsn")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	if driver == "sqlite3" {
		// SQLite allows one writer; a single connection also keeps
		// :memory: databases alive between calls.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s database", driver)
	}

	return New(db, append([]Option{WithDialect(d)}, opts...)...), nil
}

// New wraps an open handle. The Store takes ownership and closes db in Close.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, dialect: querysql.MSSQL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns the SQL dialect statements for this store must use.
func (s *Store) Dialect() *querysql.Dialect {
	return s.dialect
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
