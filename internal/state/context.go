package state

import "context"

type sessionKey struct{}

// WithSession returns a context whose data-access calls route to the given
// session. The key lives only as long as the returned context, so it never
// outlives the unit of work it was created for.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session id carried by ctx, if any.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

// RouteKey is the routing key for ctx; no session means DefaultKey.
func RouteKey(ctx context.Context) string {
	if id, ok := SessionFromContext(ctx); ok {
		return id
	}
	return DefaultKey
}
