package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() Logger {
	//nolint:exhaustruct
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))
}
