// Package logging defines the structured logger every AccountKeeper component
// receives. The only production implementation wraps log/slog.
package logging

import "context"

// Logger is a context-aware, structured logger. Args are alternating keys and
// values:
//
//	log.Info(ctx, "user registered", "user_id", id)
//
// Values under credential keys are redacted by NewJSON, but callers should
// not pass secrets in the first place.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}
