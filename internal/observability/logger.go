// Package observability builds the process logger, meters and tracer.
package observability

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Log modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// NewLogger returns a colored tint logger in development mode and a JSON
// logger otherwise. An empty mode means development.
func NewLogger(w io.Writer, mode string, level slog.Level) *slog.Logger {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" || mode == ModeDevelopment {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values are info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
