package local

import (
	"context"

	"github.com/google/uuid"
)

// Identity names one logical unit of concurrent execution, normally one
// request. It is comparable and is the key a Local uses to find the private
// namespace of its caller.
type Identity uuid.UUID

// NewIdentity returns a random Identity.
func NewIdentity() Identity {
	return Identity(uuid.New())
}

// String returns the canonical UUID form of id.
func (id Identity) String() string {
	return uuid.UUID(id).String()
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// NewContext returns ctx unchanged when it already carries an Identity, and
// otherwise a copy of ctx carrying a fresh one. Goroutines started with the
// returned context share the identity. Manager.Wrap does not use it: each
// request gets its own identity there.
func NewContext(ctx context.Context) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	return WithIdentity(ctx, NewIdentity())
}

// FromContext returns the Identity carried by ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
