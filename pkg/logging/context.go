package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger returns ctx carrying logger. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// WithRunID tags log lines with the id of one reconciliation run.
func WithRunID(ctx context.Context, id string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("run_id", id) })
}

// WithJob tags log lines with the sync job name.
func WithJob(ctx context.Context, job string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("job", job) })
}

// WithLogin tags log lines with the login being reconciled.
func WithLogin(ctx context.Context, login string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("login", login) })
}

// WithUserID tags log lines with the ticket system user id.
func WithUserID(ctx context.Context, id int) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Int("user_id", id) })
}

// WithOperation tags log lines with the phase or request being performed.
func WithOperation(ctx context.Context, operation string) context.Context {
	return with(ctx, func(c zerolog.Context) zerolog.Context { return c.Str("operation", operation) })
}

func with(ctx context.Context, fields func(zerolog.Context) zerolog.Context) context.Context {
	logger := fields(FromContext(ctx).With()).Logger()
	return WithLogger(ctx, &logger)
}
