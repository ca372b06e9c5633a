// Package logging configures structured logging to a state file.
package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
	Path   string // log file
}

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *zap.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.Logger != nil {
		// Sync fails on some file systems and terminals; nothing to recover.
		_ = r.Logger.Sync()
	}
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a logger appending to cfg.Path.
func New(cfg Config) (Runtime, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return Runtime{}, errors.New("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}
	return Runtime{Logger: NewWithWriter(cfg, f), Path: path, closer: f}, nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *zap.Logger {
	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), ParseLevel(cfg.Level))
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
}

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(level string) zap.AtomicLevel {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return lvl
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
