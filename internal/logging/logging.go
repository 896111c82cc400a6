// Package logging builds the structured logger shared by all components.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w.
// With debug set, state transitions and swallowed persistence failures are
// logged; otherwise only warnings and errors.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
