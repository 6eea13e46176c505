package config

import (
	"log/slog"
	"os"
)

// Logger builds the process-wide *slog.Logger for LogLevel, handed to
// internal/logging.AddToContext at process start. Text handler to
// stderr, matching internal/logging.Default's own zero-config choice.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
