// Package cli holds process-level helpers shared by the bountyscout
// subcommands: logger construction and signal handling.
package cli

import (
	"io"
	"log/slog"
)

// LogOptions select the handler built by NewLogger.
type LogOptions struct {
	// Verbose lowers the level to debug.
	Verbose bool

	// JSON emits one JSON object per record instead of logfmt text.
	JSON bool
}

// NewLogger builds the process logger writing to w.
func NewLogger(w io.Writer, opts LogOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h)
}
