// Package logging declares the structured-logging contract used across the
// server. The concrete implementation wraps zap; callers depend only on the
// interface.
package logging

import "context"

// Logger is a leveled, context-aware logger. Variadic args are alternating
// key-value pairs:
//
//	log.Info(ctx, "listening", "addr", addr)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs on
	// every entry.
	With(args ...any) Logger
}
