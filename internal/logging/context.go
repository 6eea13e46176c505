// Package logging carries a *slog.Logger through context.Context so
// the broker, bridge, and interaction engine can each log with
// request-scoped attributes (client id, tab id, action) without a
// package-global logger shared across concurrently-running test
// instances.
//
// Grounded on raiden-staging-kernel-images's
// wip-server-op/server--clipboard-bak/lib/logger/context.go.
package logging

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey struct{}

// Default is the fallback logger used when no logger has been added
// to context — text handler at info level, matching slog's own
// zero-config default.
var Default = slog.New(slog.NewTextHandler(os.Stderr, nil))

// AddToContext returns a new context carrying l.
func AddToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or Default if none
// was added.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Default
}
