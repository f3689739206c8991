// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = map[string]bool{
	"token":    true,
	"password": true,
	"secret":   true,
}

// setupLogger configures the global slog logger.
func setupLogger(level, format string) {
	slog.SetDefault(slog.New(newLogHandler(os.Stdout, level, format)))
}

// newLogHandler builds a JSON handler for format "json" and a tint handler
// otherwise. Colour is only used when w is a terminal.
func newLogHandler(w io.Writer, level, format string) slog.Handler {
	logLevel := parseLevel(level)

	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: redactSecrets,
		})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:       logLevel,
		TimeFormat:  time.DateTime,
		NoColor:     !isTerminal(w),
		ReplaceAttr: redactSecrets,
	})
}

// parseLevel accepts slog level names in any case and falls back to info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[a.Key] {
		return slog.String(a.Key, "REDACTED")
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
