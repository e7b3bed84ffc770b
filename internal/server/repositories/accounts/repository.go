// Package accounts persists organizational accounts and the user_accounts
// linkage table.
package accounts

import (
	"context"

	"github.com/kodasoftware/example-api/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// GetByUserID follows the user's linkage row and returns the account even
	// when it has been soft-deleted.
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)

	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, account *models.Account) (*models.Account, error)

	// Link points the user's linkage row at accountID, replacing any previous
	// target.
	Link(ctx context.Context, userID, accountID string) error
}
