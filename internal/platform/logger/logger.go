package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON slog logger on stdout tagged with the service name.
func New(service string, env string) *slog.Logger {
	return NewWithWriter(os.Stdout, service, env)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, service string, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", service, "env", env)
}
