// Package logger builds the structured zap logger shared by the long-lived
// components (controller sessions, HTTP server, generators).
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps the zap logger so it can be created before its level is known
type Logger struct {
	Log *zap.Logger
}

// New returns a logger that discards everything until Init is called
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the logger with a console logger at the given level
// ("debug", "info", "warn", "error")
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	l.Log = zl
	return nil
}
