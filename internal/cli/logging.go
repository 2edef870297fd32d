package cli

import (
	"io"
	"log/slog"
	"os"
)

// stderr receives diagnostics, spinners and debug logs.
var stderr io.Writer = os.Stderr

// newLogger returns the debug logger handed to the query runner. It only
// writes when --verbose is set.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
