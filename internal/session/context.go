package session

import (
	"context"

	"gatehouse/internal/users"
)

type identityKey struct{}

// Identity is the authenticated caller of a request. The zero value is an
// anonymous caller.
type Identity struct {
	User    *users.User
	Session *Session
}

// Authenticated reports whether the identity carries a live session
func (i Identity) Authenticated() bool {
	return i.Session != nil && i.User != nil
}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, or the anonymous identity
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
