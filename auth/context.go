package auth

import (
	"context"

	"github.com/warp/fuel-engine/fuel"
)

type contextKey string

const contextKeyCaller contextKey = "auth.caller"

// WithCaller stores the authenticated caller in context.
func WithCaller(ctx context.Context, c fuel.Caller) context.Context {
	return context.WithValue(ctx, contextKeyCaller, c)
}

// CallerFromContext extracts the caller. ok is false on unauthenticated
// requests.
func CallerFromContext(ctx context.Context) (fuel.Caller, bool) {
	if ctx == nil {
		return fuel.Caller{}, false
	}
	c, ok := ctx.Value(contextKeyCaller).(fuel.Caller)
	return c, ok
}
