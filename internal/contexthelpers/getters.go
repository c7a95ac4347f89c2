package contexthelpers

import (
	"context"
)

// AuthenticatedUserID returns the id of the user making the request or 0 if there is none.
func AuthenticatedUserID(ctx context.Context) int {
	userID, ok := ctx.Value(AuthenticatedUserIDContextKey).(int)
	if !ok {
		return 0
	}

	return userID
}

// TraceID returns the id of the request trace or the empty string outside a request.
func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
