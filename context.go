package authclient

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches the X-Request-ID to send for requests made with ctx.
// Without it every logical request gets a fresh random id, kept across its retries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
