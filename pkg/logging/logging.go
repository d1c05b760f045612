package logging

import (
	"log/slog"
	"strings"

	"github.com/dusted-go/logging/prettylog"
)

// New returns a pretty-printing slog logger at the given level.
func New(level string) *slog.Logger {
	logOpts := slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
	}
	return slog.New(prettylog.NewHandler(&logOpts))
}

// Setup installs New(level) as the process-wide default and returns it.
func Setup(level string) *slog.Logger {
	logger := New(level)
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(level string) slog.Level {
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
