// Package log provides the structured logging interface used by every
// pipeline stage.
//
// The interface is slog-shaped (message plus alternating key/value fields) so
// stages do not depend on a concrete backend. The default backend is zerolog,
// emitting one JSON object per line.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("stats").With(
//	    log.JobKey, "stats.aggregate",
//	)
//	logger.Info("job finished",
//	    log.RecordsInKey, 1000,
//	    log.DurationMsKey, 12,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Implementations must be safe for
// concurrent use because map and reduce tasks log from separate goroutines.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	//
	// Example:
	//   logger.Debug("partition reduced",
	//       log.PartitionKey, 3,
	//       log.RecordsOutKey, 42,
	//   )
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. Pass the error as a field
	// (conventionally under ErrAttrKey) so its stack trace is extracted.
	//
	// Example:
	//   logger.Error("epoch failed",
	//       log.ErrAttrKey, err,
	//       log.EpochKey, 7,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive debug payloads.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
