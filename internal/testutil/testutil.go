// Package testutil holds fixtures shared by the tests of several packages:
// a deterministic engine and a small SQLite copy of the cover tables.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/expert"
	"github.com/roach88/nlq/internal/querysql"
)

// TraceID is the trace id every engine from Engine assigns.
const TraceID = "trace-test"

// Scenario is the request most tests compile.
const Scenario = "zeige VSN und Name, wo Status gleich A, sortiert nach VSN"

// CoverSchema creates the tables the Cover templates read and a few rows.
// Only Status A contracts 1001 and 1002 have a name.
const CoverSchema = `
CREATE TABLE LU_ALLG (LU_VSN TEXT, LU_STA TEXT, LU_BEG TEXT, LU_ABL TEXT, LU_VMT TEXT,
	LU_SPA TEXT, LU_WKZ TEXT, LU_PRAEMIE REAL);
CREATE TABLE LU_MASKEP (LU_VSN TEXT, LU_NAM TEXT);
CREATE TABLE SVA_SCHADEN (SVA_VSN TEXT);
INSERT INTO LU_ALLG (LU_VSN, LU_STA, LU_VMT, LU_PRAEMIE) VALUES
	('1002', 'A', 'Müller', 300),
	('1001', 'A', 'Schmidt', 150),
	('1003', 'S', 'Müller', 90);
INSERT INTO LU_MASKEP VALUES ('1001', 'Meier'), ('1002', ' Huber ');
`

// CoverRows is what Scenario returns against CoverSchema.
var CoverRows = [][]any{{"1001", "Meier"}, {"1002", "Huber"}}

// Engine builds an engine over the built-in knowledge rendering in d
// (nil: mssql) with a fixed trace id.
func Engine(t testing.TB, d *querysql.Dialect, opts ...engine.Option) *engine.Engine {
	t.Helper()
	if d == nil {
		d = querysql.MSSQL
	}
	opts = append([]engine.Option{engine.WithTraceIDGenerator(engine.NewRepeatingGenerator(TraceID))}, opts...)
	e, err := engine.Build([]expert.Option{expert.WithRenderer(querysql.NewRenderer(d))}, opts...)
	require.NoError(t, err)
	return e
}

// SeedCover runs CoverSchema on db.
func SeedCover(t testing.TB, db *sql.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), CoverSchema)
	require.NoError(t, err)
}
