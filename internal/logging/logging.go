// Package logging builds the engine's structured logger. The hot path
// (internal/amm, internal/cache, internal/pending, internal/opportunity,
// internal/bundle) never imports this package directly — only the
// background workers and cmd/arbd log, matching the single-writer /
// background-worker split in spec.md §5.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger, or a human-readable console logger
// when dryRun is set (local/dry-run sessions favor readability over
// machine-parseable output).
func New(dryRun bool) (*zap.Logger, error) {
	if dryRun {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests and library
// callers that don't want engine logs mixed into their own output.
func Noop() *zap.Logger {
	return zap.NewNop()
}
