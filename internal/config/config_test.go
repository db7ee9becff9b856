package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nlq.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(New())
	require.NoError(t, err)

	assert.Equal(t, "mssql", cfg.SQL.Dialect)
	assert.Equal(t, 2000, cfg.Compiler.MaxInputRunes)
	assert.Equal(t, 1, cfg.Compiler.MinKeywordHits)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, 30*time.Second, cfg.Database.Timeout())
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[sql]
dialect = "postgres"

[compiler]
min_keyword_hits = 2

[database]
driver = "pgx"
dsn = "postgres://reports@localhost/backoffice"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.SQL.Dialect)
	assert.Equal(t, 2, cfg.Compiler.MinKeywordHits)
	assert.Equal(t, 2000, cfg.Compiler.MaxInputRunes, "unset keys keep defaults")
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://reports@localhost/backoffice", cfg.Database.DSN)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[sql]\ndialect = \"postgres\"\n")
	t.Setenv("NLQ_SQL_DIALECT", "sqlite")
	t.Setenv("NLQ_COMPILER_MAX_INPUT_RUNES", "500")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.SQL.Dialect)
	assert.Equal(t, 500, cfg.Compiler.MaxInputRunes)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoad_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mssql", cfg.SQL.Dialect)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			SQL:      SQLConfig{Dialect: "mssql"},
			Compiler: CompilerConfig{MaxInputRunes: 10, MinKeywordHits: 1},
			Database: DatabaseConfig{Driver: "sqlite3", TimeoutSeconds: 1},
			Log:      LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"dialect", func(c *Config) { c.SQL.Dialect = "oracle" }, "sql.dialect"},
		{"max runes", func(c *Config) { c.Compiler.MaxInputRunes = 0 }, "max_input_runes"},
		{"min hits", func(c *Config) { c.Compiler.MinKeywordHits = -1 }, "min_keyword_hits"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"timeout", func(c *Config) { c.Database.TimeoutSeconds = -5 }, "timeout_seconds"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			require.NoError(t, c.Validate())
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
