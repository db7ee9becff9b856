// Package logger holds the process-wide zap logger used by the CLI.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/nlq/internal/errors"
)

var (
	// Logger is the global logger. It is a no-op until Initialize runs.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected JSON encoding.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize replaces the global logger. JSON output uses zap's production
// config; otherwise a console encoder writes to stderr so stdout stays free
// for command output.
func Initialize(jsonOutput bool, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	var zl *zap.Logger
	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		cfg.OutputPaths = []string{"stderr"}
		if zl, err = cfg.Build(); err != nil {
			return errors.Wrap(err, "build json logger")
		}
	} else {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.TimeKey = ""
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.AddSync(os.Stderr),
			lvl,
		))
	}

	JSONOutput = jsonOutput
	Logger = zl.Sugar()
	return nil
}

// ParseLevel maps a level name to a zap level. The empty string is info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, errors.WithHint(
			errors.Wrapf(err, "log level %q", level),
			"use debug, info, warn or error")
	}
	return lvl, nil
}

// Base returns the unsugared global logger for components that take a
// *zap.Logger.
func Base() *zap.Logger {
	return Logger.Desugar()
}

// Reset restores the no-op logger.
func Reset() {
	Logger = zap.NewNop().Sugar()
	JSONOutput = false
}
