// Package logutil holds the process-wide zap logger. The default is a nop
// logger so library code can log unconditionally; the composition root
// calls InitLogger with a destination that does not fight the TUI.
package logutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// InitLogger builds the production logger. When path is non-empty, output
// goes to that file instead of stderr — required in TUI mode, where stderr
// writes would corrupt the alternate screen.
func InitLogger(path string, debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	} else {
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// GetLogger returns the current logger.
func GetLogger() *zap.Logger { return logger }

// Sync flushes buffered log entries; ignore the error on stderr per zap docs.
func Sync() {
	_ = logger.Sync()
}

// Discard silences logging entirely (tests, TUI mode without a log file).
func Discard() {
	logger = zap.NewNop()
}
