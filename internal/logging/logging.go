// Package logging builds the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger. Level and format come from WARMPATH_LOG_LEVEL
// (debug, info, warn, error) and WARMPATH_LOG_FORMAT (text or json).
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("WARMPATH_LOG_LEVEL")),
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("WARMPATH_LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
