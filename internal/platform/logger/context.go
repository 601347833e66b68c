package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is an unexported type so no other package can collide
// with the context key.
type loggerContextKey struct{}

// WithLogger returns a copy of ctx carrying the given logger. Handlers and
// middleware use this to attach request-scoped attributes (trace ID, learner
// ID) once and have every downstream log line include them.
//
// Panics if log is nil: storing a nil logger would turn every downstream
// FromContext call into a latent nil dereference.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		panic("logger.WithLogger called with nil logger")
	}
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger carried by ctx, or the process default
// logger when ctx is nil or carries none. The result is never nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger carried by ctx, falling back to
// def, and finally to the process default when def is also nil. Services
// that hold their own component logger use this so request-scoped loggers
// win when present.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && log != nil {
			return log
		}
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
