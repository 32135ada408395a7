package auth

import (
	"context"

	"medvault-server/internal/apperr"
)

type identityKey struct{}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    string
	SessionID string
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// CurrentUserID resolves the calling user. Repositories call it before
// touching any table and return its error unchanged.
func CurrentUserID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", apperr.ErrUnauthenticated
	}
	return id.UserID, nil
}
