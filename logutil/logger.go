// Package logutil holds the process-wide zap logger.
package logutil

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger   = zap.NewNop()
	initOnce sync.Once

	// errOutput receives the reason a logger could not be built
	errOutput io.Writer = os.Stderr
)

// InitLogger builds the global logger once. level is a zap level name
// ("debug", "info", "warn", "error"); "debug" selects the development
// encoder. An unparsable level falls back to info.
func InitLogger(level string) {
	initOnce.Do(func() {
		logger = buildOrNop(level, nil)
	})
}

// GetLogger returns the global logger; a no-op logger until InitLogger runs.
func GetLogger() *zap.Logger {
	return logger
}

// buildOrNop reports a failed build on errOutput and returns a no-op logger
func buildOrNop(level string, outputPaths []string) *zap.Logger {
	built, err := newLogger(level, outputPaths)
	if err != nil {
		fmt.Fprintf(errOutput, "logutil: logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return built
}

// newLogger builds a logger writing to outputPaths, or the config's
// default sinks when outputPaths is empty
func newLogger(level string, outputPaths []string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if len(outputPaths) > 0 {
		cfg.OutputPaths = outputPaths
	}
	return cfg.Build()
}
