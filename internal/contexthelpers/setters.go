package contexthelpers

import (
	"context"
	"net/http"
)

// WithAuthenticatedUser returns a context that identifies userID as the caller.
func WithAuthenticatedUser(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
}

func AuthenticateContext(r *http.Request, userID int) *http.Request {
	return r.WithContext(WithAuthenticatedUser(r.Context(), userID))
}

func SetTraceID(r *http.Request, traceID string) *http.Request {
	ctx := context.WithValue(r.Context(), TraceIDContextKey, traceID)
	return r.WithContext(ctx)
}
