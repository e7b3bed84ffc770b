package users

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

const selectColumns = `id, email, password, name, account_id, deleted, created_at, updated_at`

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + selectColumns + ` FROM users
		 WHERE email = $1
		 ORDER BY deleted ASC, updated_at DESC
		 LIMIT 1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = r.now()
	return r.save(ctx, user)
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	return r.save(ctx, user)
}

func (r *PostgresRepository) Delete(ctx context.Context, user *models.User) (*models.User, error) {
	user.Deleted = true
	return r.save(ctx, user)
}

// save is the single write primitive behind Create, Update and Delete: an
// upsert by id that only ever overwrites the columns listed in DO UPDATE.
func (r *PostgresRepository) save(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = r.now()

	query :=
		`INSERT INTO users (id, email, password, name, account_id, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   email = EXCLUDED.email,
		   password = EXCLUDED.password,
		   name = EXCLUDED.name,
		   account_id = EXCLUDED.account_id,
		   deleted = EXCLUDED.deleted,
		   updated_at = EXCLUDED.updated_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Password, user.Name, nullString(user.AccountID),
		user.Deleted, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var accountID sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Password, &user.Name, &accountID,
		&user.Deleted, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if accountID.Valid {
		user.AccountID = &accountID.String
	}
	return user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
