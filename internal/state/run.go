package state

import "context"

// RunWithSession runs fn as one unit of work routed to session id. The
// session must exist; it is touched before fn runs. fn receives a context
// carrying the routing key, and the caller's ctx is left without it, so the
// key cannot leak into later work.
//
// An empty id or DefaultKey runs fn against the default connection with no
// session bookkeeping. Under PolicySingleUse the session is removed once fn
// returns, whether or not it succeeded.
func RunWithSession[T any](ctx context.Context, r *Registry, id string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if id == "" || id == DefaultKey {
		return fn(ctx)
	}

	if err := r.EnsureExists(id); err != nil {
		return zero, err
	}
	if err := r.Touch(id); err != nil {
		return zero, err
	}
	if r.policy == PolicySingleUse {
		defer r.Remove(id)
	}

	return fn(WithSession(ctx, id))
}
