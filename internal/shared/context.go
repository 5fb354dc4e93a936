package shared

import (
	"context"

	"github.com/google/uuid"
)

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated owner id in context.
func ContextWithOwner(ctx context.Context, owner uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, owner)
}

// OwnerFromContext extracts the owner id set by the auth middleware.
// Every repository query must be scoped by this id.
func OwnerFromContext(ctx context.Context) (uuid.UUID, bool) {
	owner, ok := ctx.Value(ownerContextKey{}).(uuid.UUID)
	return owner, ok
}
