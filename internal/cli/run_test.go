package cli

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nlq/internal/testutil"
)

// sqliteDB creates a database file with the cover tables.
func sqliteDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	testutil.SeedCover(t, db)
	require.NoError(t, db.Close())
	return path
}

func TestRun_Text(t *testing.T) {
	dsn := sqliteDB(t)

	code, stdout, stderr := runCLI(t, "run", "--dsn", dsn, scenario)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "VSN")
	assert.Contains(t, stdout, "1001  Meier\n1002  Huber\n")
	assert.Contains(t, stdout, "(2 rows)\n")
}

func TestRun_JSON(t *testing.T) {
	dsn := sqliteDB(t)

	code, stdout, _ := runCLI(t, "--format", "json", "run", "--dsn", dsn, "--max-rows", "1", scenario)
	require.Equal(t, ExitSuccess, code)

	resp := decode(t, stdout)
	assert.Equal(t, "trace-cli", resp.TraceID)
	assert.Equal(t, []any{"VSN", "Name"}, resp.Data["columns"])
	assert.Equal(t, []any{[]any{"1001", "Meier"}}, resp.Data["rows"])
	assert.Equal(t, true, resp.Data["truncated"])
	assert.Equal(t, []any{"A"}, resp.Data["params"])
	assert.Contains(t, resp.Data["sql"], "LAL.LU_STA = ?")
}

func TestRun_Metrics(t *testing.T) {
	dsn := sqliteDB(t)

	code, _, stderr := runCLI(t, "--metrics", "run", "--dsn", dsn, scenario)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, `nlq_execute_total{result="ok"} 1`)
}

func TestRun_Errors(t *testing.T) {
	code, _, stderr := runCLI(t, "run", scenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [DATABASE_ERROR]")
	assert.Contains(t, stderr, "dsn is required")

	code, _, stderr = runCLI(t, "run", "--driver", "oracle", "--dsn", "x", scenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "Error [DATABASE_ERROR]")

	// Compilation failures exit like compile does.
	code, _, stderr = runCLI(t, "run", "--dsn", sqliteDB(t), "hallo welt")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Error [UNRECOGNIZED_REQUEST]")

	// A database missing the tables fails on execution.
	empty := filepath.Join(t.TempDir(), "empty.db")
	code, _, stderr = runCLI(t, "run", "--dsn", empty, scenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "no such table")
}
