package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger tagged with the service name and installs it as slog's default.
func NewLogger(env, service string) *slog.Logger {
	log := newLogger(env, os.Stdout).With("service", service, "env", env)
	slog.SetDefault(log)

	return log
}

func newLogger(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		// never let a password field leak through an attribute
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case "password", "passwordHash", "token":
				return slog.String(a.Key, "[redacted]")
			}
			return a
		},
	})

	return slog.New(NewTraceHandler(handler))
}
