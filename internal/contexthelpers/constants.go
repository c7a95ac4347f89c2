// Package contexthelpers stores request scoped values in the context.
package contexthelpers

type contextKey string

const AuthenticatedUserIDContextKey = contextKey("authenticatedUserID")
const TraceIDContextKey = contextKey("traceID")

// UserIDHeader identifies the caller. The server trusts it as set by the gateway in front of it.
const UserIDHeader = "X-User-ID"
