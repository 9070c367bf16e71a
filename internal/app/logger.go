package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run-scoped logger from the effective level
// (execution_settings.log_level unless overridden with -log-level) and
// the requested output format. The process-global default logger is left
// alone so the bootstrap logger keeps writing to stderr.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
