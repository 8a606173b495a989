package authcore

import "context"

type contextKey int

const originKey contextKey = 0

// WithOriginAddress attaches the caller's network address to the context.
// The tracker records it against logged activity; absent an origin the
// tracker falls back to "unknown".
func WithOriginAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, originKey, addr)
}

func originFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(originKey).(string); ok {
		return v
	}
	return ""
}
