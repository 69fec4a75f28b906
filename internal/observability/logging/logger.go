// Package logging builds the process wide slog handler. Each binary calls
// NewJSONLogger once at startup and installs the result as the default logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger returns a JSON logger tagged with the service name. The level
// string comes straight from LOG_LEVEL and falls back to info when it does not
// name a known level.
func NewJSONLogger(service, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	return logger.With(slog.String("service", service))
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func levelFromString(raw string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	return slog.LevelInfo
}
