package querysql

import (
	"strconv"
	"strings"

	"github.com/roach88/nlq/internal/errors"
)

// LimitStyle says where a dialect puts the row limit.
type LimitStyle int

const (
	// LimitTop renders "SELECT TOP (n)" at the ${top} slot.
	LimitTop LimitStyle = iota

	// LimitClause renders "LIMIT n" at the ${limit} slot.
	LimitClause
)

// Dialect holds the SQL differences between supported databases.
type Dialect struct {
	Name string

	// Placeholder returns the bind marker for the n-th parameter (1-based).
	Placeholder func(n int) string

	Limit LimitStyle

	// ContainsOp is the case-insensitive pattern match operator.
	ContainsOp string
}

var (
	// MSSQL targets SQL Server, the reporting database of the back office.
	MSSQL = &Dialect{
		Name:        "mssql",
		Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		Limit:       LimitTop,
		ContainsOp:  "LIKE",
	}

	// SQLite uses positional ? markers and a LIMIT clause.
	SQLite = &Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		Limit:       LimitClause,
		ContainsOp:  "LIKE",
	}

	// Postgres uses numbered $n markers and ILIKE for case-insensitive matching.
	Postgres = &Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Limit:       LimitClause,
		ContainsOp:  "ILIKE",
	}
)

var dialects = map[string]*Dialect{
	"mssql":      MSSQL,
	"sqlserver":  MSSQL,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"pgx":        Postgres,
}

// DialectByName resolves a dialect or driver name. The empty name is MSSQL.
func DialectByName(name string) (*Dialect, error) {
	if strings.TrimSpace(name) == "" {
		return MSSQL, nil
	}
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.WithHint(errors.Newf("unknown SQL dialect %q", name), "use mssql, sqlite or postgres")
	}
	return d, nil
}

// escapeLikePattern escapes LIKE wildcards so user text matches literally.
// Statements declare ESCAPE '\' alongside the pattern.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
