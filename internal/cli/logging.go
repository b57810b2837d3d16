package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"roastcheck/internal/config"
	"roastcheck/internal/manager"
)

// newLogger builds the invocation logger. Every record carries the
// invocation id and the task.
func newLogger(cfg config.Config, w io.Writer, invocation, task string) zerolog.Logger {
	out := w
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).
		Level(parseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("invocation", invocation).
		Str("task", task).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// eventLogger forwards manager lifecycle events to the logger. Process
// failures are warnings; everything else is debug.
func eventLogger(l zerolog.Logger) manager.EventPublisher {
	return manager.PublisherFunc(func(e manager.Event) {
		ev := l.Debug()
		if e.Name == "spawn_exit" || e.Name == "spawn_timeout" {
			ev = l.Warn()
		}
		if e.ModelID != "" {
			ev = ev.Str("model", e.ModelID)
		}
		ev.Fields(e.Fields).Str("event", e.Name).Msg("lifecycle")
	})
}
