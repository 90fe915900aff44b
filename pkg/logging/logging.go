// Package logging builds the zap logger used by the CLI.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels as written in the config file.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Level converts a config log level to a zap level. Values outside the
// known range are clamped.
func Level(level int) zapcore.Level {
	switch {
	case level <= LevelDebug:
		return zapcore.DebugLevel
	case level == LevelInfo:
		return zapcore.InfoLevel
	case level == LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// New returns a JSON logger writing to path at the given level.
// The terminal belongs to the TUI, so an empty path disables logging.
func New(level int, path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(Level(level))
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
