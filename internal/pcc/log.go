// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package pcc

// Logger is the diagnostic log channel the engine uses for non-fatal "log
// and fix up" error handling: conditions worth surfacing but not worth
// failing the connection over. The core never imports a concrete logging
// library directly; internal/telemetry provides a zap-backed
// implementation.
type Logger interface {
	Infof(format string, a ...any)
	Warnf(format string, a ...any)
}

// NopLogger discards every message. It is the default Logger for a
// Controller that was not given one explicitly.
type NopLogger struct{}

// Infof implements Logger.
func (NopLogger) Infof(format string, a ...any) {}

// Warnf implements Logger.
func (NopLogger) Warnf(format string, a ...any) {}

// printfLogger is a minimal Logger useful in tests that want output on
// the standard test log without pulling in telemetry/zap.
type printfLogger struct {
	printf func(format string, a ...any)
}

// Infof implements Logger.
func (p printfLogger) Infof(format string, a ...any) {
	p.printf("INFO "+format, a...)
}

// Warnf implements Logger.
func (p printfLogger) Warnf(format string, a ...any) {
	p.printf("WARN "+format, a...)
}

// NewPrintfLogger returns a Logger that calls printf for every message,
// prefixed with its level.
func NewPrintfLogger(printf func(format string, a ...any)) Logger {
	return printfLogger{printf}
}
