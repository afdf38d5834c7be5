// Package telemetry builds the zap logger used throughout pccd and adapts
// it to pcc.Logger: a logger constructed once at startup. An unrecognized
// level string falls back to zap's default (info) level.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/heistp/pcc/internal/pcc"
)

// New builds a zap.Logger for the given level ("debug", "info", "warn",
// "error") and format ("json" or "console").
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = parseLevel(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return logger.Named(pcc.Name()), nil
}

func parseLevel(level string) zap.AtomicLevel {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return zap.NewAtomicLevel()
	}
	return lvl
}

// EngineLogger adapts a *zap.Logger to pcc.Logger, the only channel the
// engine uses for its non-fatal "log and fix up" diagnostics.
type EngineLogger struct {
	z *zap.Logger
}

// NewEngineLogger wraps z as a pcc.Logger.
func NewEngineLogger(z *zap.Logger) EngineLogger {
	return EngineLogger{z: z}
}

// Infof implements pcc.Logger.
func (l EngineLogger) Infof(format string, a ...any) {
	l.z.Sugar().Infof(format, a...)
}

// Warnf implements pcc.Logger.
func (l EngineLogger) Warnf(format string, a ...any) {
	l.z.Sugar().Warnf(format, a...)
}

var _ pcc.Logger = EngineLogger{}
