// Package config loads nlq settings from nlq.toml and NLQ_* environment
// variables.
//
// Configuration tunes only the surface around the compiler: SQL dialect,
// input bounds, keyword threshold, database connection and logging. The
// knowledge base is compiled into the binary and is never read from here.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/nlq/internal/errors"
	"github.com/roach88/nlq/internal/logger"
	"github.com/roach88/nlq/internal/querysql"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "nlq.toml"

// EnvPrefix prefixes environment overrides, e.g. NLQ_SQL_DIALECT.
const EnvPrefix = "NLQ"

// Config is the full nlq configuration.
type Config struct {
	SQL      SQLConfig      `mapstructure:"sql"`
	Compiler CompilerConfig `mapstructure:"compiler"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// SQLConfig selects the rendering dialect.
type SQLConfig struct {
	Dialect string `mapstructure:"dialect"` // mssql, sqlite or postgres
}

// CompilerConfig bounds and tunes request compilation.
type CompilerConfig struct {
	MaxInputRunes  int `mapstructure:"max_input_runes"`
	MinKeywordHits int `mapstructure:"min_keyword_hits"`
}

// DatabaseConfig is used by the run command only.
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"` // sqlite3 or pgx
	DSN            string `mapstructure:"dsn"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the query timeout as a duration.
func (d DatabaseConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// LogConfig configures internal/logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sql.dialect", "mssql")

	v.SetDefault("compiler.max_input_runes", 2000)
	v.SetDefault("compiler.min_keyword_hits", 1)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.timeout_seconds", 30)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults and environment binding but
// no file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the configuration. An explicit path must exist; with an empty
// path nlq.toml in the working directory is used when present.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := New()
	v.SetConfigType("toml")

	switch {
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", DefaultFile)
			}
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Logger.Debugw("config loaded", "file", f)
	}
	return &cfg, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if _, err := querysql.DialectByName(c.SQL.Dialect); err != nil {
		return errors.Wrap(err, "sql.dialect")
	}
	if c.Compiler.MaxInputRunes <= 0 {
		return errors.Newf("compiler.max_input_runes must be positive, got %d", c.Compiler.MaxInputRunes)
	}
	if c.Compiler.MinKeywordHits <= 0 {
		return errors.Newf("compiler.min_keyword_hits must be positive, got %d", c.Compiler.MinKeywordHits)
	}
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return errors.WithHint(
			errors.Newf("database.driver %q is not supported", c.Database.Driver),
			"use sqlite3 or pgx")
	}
	if c.Database.TimeoutSeconds < 0 {
		return errors.Newf("database.timeout_seconds must not be negative, got %d", c.Database.TimeoutSeconds)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}
