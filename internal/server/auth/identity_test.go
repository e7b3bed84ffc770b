package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Can(t *testing.T) {
	id := Identity{ID: "u1", Permissions: []Permission{PermissionRead}}
	assert.True(t, id.Can(PermissionRead))
	assert.False(t, id.Can(PermissionWrite))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	want := Identity{ID: "u1", Email: "a@b.c", Permissions: DefaultPermissions()}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
