package domain

import (
	"context"
)

// Logger defines the interface for structured logging within the application.
// All methods accept a context.Context first so implementations can enrich
// entries with request-scoped values (request id, user id, event id).
// The variadic fields argument carries key-value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal calls os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}
