package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/server/models"
)

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, name, deleted, created_at, updated_at FROM accounts
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	query :=
		`SELECT a.id, a.name, a.deleted, a.created_at, a.updated_at FROM accounts a
		 JOIN user_accounts ua ON ua.account_id = a.id
		 WHERE ua.user_id = $1
		 `
	return r.getOne(ctx, query, userID)
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = r.now()
	return r.save(ctx, account)
}

func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	return r.save(ctx, account)
}

func (r *PostgresRepository) Delete(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.Deleted = true
	return r.save(ctx, account)
}

func (r *PostgresRepository) Link(ctx context.Context, userID, accountID string) error {
	query :=
		`INSERT INTO user_accounts (user_id, account_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET
		   account_id = EXCLUDED.account_id
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) save(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.UpdatedAt = r.now()

	query :=
		`INSERT INTO accounts (id, name, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   deleted = EXCLUDED.deleted,
		   updated_at = EXCLUDED.updated_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Name, account.Deleted, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	account := &models.Account{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID, &account.Name, &account.Deleted, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}
