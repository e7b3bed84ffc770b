// Package auth holds the stateless building blocks of authentication:
// password hashing, the Identity principal and RS256 token issuance.
package auth

import "context"

type Permission string

const (
	PermissionRead  Permission = "READ"
	PermissionWrite Permission = "WRITE"
)

// DefaultPermissions is granted to every authenticated user.
func DefaultPermissions() []Permission {
	return []Permission{PermissionRead, PermissionWrite}
}

// Identity is the authenticated principal carried in access tokens. It is
// derived from a user row and never persisted.
type Identity struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	Permissions []Permission `json:"permissions"`
}

// Can reports whether the identity holds permission p.
func (i Identity) Can(p Permission) bool {
	for _, have := range i.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
