// Package logging builds the zap logger shared by commands, the session and
// the auction watcher.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where diagnostics go.
type Options struct {
	// Verbose enables debug logging; otherwise the logger is a no-op.
	Verbose bool
	// File redirects output away from the terminal (used by the live
	// dashboard so log lines do not tear the TUI). Empty means stderr.
	File string
}

// New returns a logger for opts. The returned logger is never nil.
func New(opts Options) (*zap.Logger, error) {
	if !opts.Verbose {
		return zap.NewNop(), nil
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		config.OutputPaths = []string{opts.File}
		config.ErrorOutputPaths = []string{opts.File}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
