package logging

import (
	"log/slog"
	"strings"
)

// LevelFromString parses a log level name as given on the command line.
// Both "WARN" and "WARNING" are accepted; anything unknown falls back
// to warning, matching the CLI default.
func LevelFromString(str string) slog.Level {
	switch strings.ToUpper(str) {
	case slog.LevelDebug.String():
		return slog.LevelDebug
	case slog.LevelInfo.String():
		return slog.LevelInfo
	case slog.LevelWarn.String(), "WARNING":
		return slog.LevelWarn
	case slog.LevelError.String():
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
