// Package users declares and implements the persistence contract for User
// rows. Every method runs on the DBTX it was constructed with, so callers
// decide whether it is part of a transaction.
package users

import (
	"context"

	"github.com/kodasoftware/example-api/internal/server/models"
)

// Repository is the credential store for users. Lookups return
// common.ErrorNotFound when no row matches; they never interpret the deleted
// flag, which is left to the service layer.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIDForUpdate is GetByID that also locks the row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.User, error)
	// GetByEmail prefers the non-deleted row when a deleted user shares the
	// address.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	// Delete soft-deletes the user; the row and its data stay.
	Delete(ctx context.Context, user *models.User) (*models.User, error)
}
