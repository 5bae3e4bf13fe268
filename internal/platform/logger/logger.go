package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Debug mode lowers the level
// so detailed error messages reach the logs without reaching API responses.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
