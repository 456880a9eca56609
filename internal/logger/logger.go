// Package logger builds the diagnostic zap logger. User-facing progress goes
// through report.Logger instead.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger writing to path. With an empty path it writes to
// stderr when verbose and is a no-op otherwise. The returned close function
// flushes and closes the file.
func New(path string, verbose bool) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	var sink zapcore.WriteSyncer
	closeFn := func() error { return nil }
	switch {
	case path != "":
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
		}
		sink = zapcore.AddSync(f)
		closeFn = f.Close
	case verbose:
		sink = zapcore.Lock(os.Stderr)
	default:
		return zap.NewNop(), closeFn, nil
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, level)
	log := zap.New(core)

	return log, func() error {
		_ = log.Sync()
		return closeFn()
	}, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
