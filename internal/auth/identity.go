package auth

import (
	"context"

	"github.com/google/uuid"
)

// Identity is a caller whose identity token passed verification.
type Identity struct {
	Subject  string
	Username string
	Groups   []string
	// UUID is the provider's stable user id, zero when the token has none.
	UUID uuid.UUID
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the Gate.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
