package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logging contract used across the core.
// Arguments are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. It is the default when no logger is
// injected.
type NopLogger struct{}

// Debug discards the record.
func (NopLogger) Debug(string, ...any) {}

// Info discards the record.
func (NopLogger) Info(string, ...any) {}

// Warn discards the record.
func (NopLogger) Warn(string, ...any) {}

// Error discards the record.
func (NopLogger) Error(string, ...any) {}

// MetricsRecorder receives one observation per dispatch with its outcome
// and wall time.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// NopMetricsRecorder discards observations.
type NopMetricsRecorder struct{}

// Observe discards the observation.
func (NopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
