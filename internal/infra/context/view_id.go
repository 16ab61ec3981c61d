package context

import (
	"context"
)

const contextKeyViewID = contextKey("viewID")

// ViewIDFromContext extracts the page view ID from the context.
func ViewIDFromContext(ctx context.Context) (string, bool) {
	viewID, ok := ctx.Value(contextKeyViewID).(string)

	return viewID, ok && viewID != ""
}

// WithViewID returns a context carrying the ID of the page view that owns the
// current operation.
func WithViewID(ctx context.Context, viewID string) context.Context {
	return context.WithValue(ctx, contextKeyViewID, viewID)
}
