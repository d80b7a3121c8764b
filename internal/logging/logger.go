// Package logging builds the structured logger shared by the finder.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger for the given environment.
// Production writes JSON at info level; anything else writes text at debug
// level. Output goes to stderr so that stdout carries only search results.
func NewLogger(env string) *slog.Logger {
	return NewLoggerTo(os.Stderr, env)
}

// NewLoggerTo is NewLogger with an explicit destination.
func NewLoggerTo(w io.Writer, env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}
