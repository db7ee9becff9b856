// Package store executes compiled statements against a reporting database.
//
// The compiler never touches a database; only the run command does. A
// Store wraps a *sql.DB opened with one of the registered drivers:
//
//	sqlite3  github.com/mattn/go-sqlite3
//	pgx      github.com/jackc/pgx/v5/stdlib
//
// Statements carry their parameters separately and are passed to the
// driver unchanged, so user values are bound by the database, never
// spliced into SQL text.
package store
