// Package logging configures slog for the application.
// Development environments get human-readable text output on stdout;
// everything else gets JSON for log aggregation.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a config log level string to a slog.Level.
// Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds the application logger for the given environment
func SetupLogger(env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(env) == "dev" || strings.ToLower(env) == "test" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
