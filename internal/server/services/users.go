package services

import (
	"context"
	"errors"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/models"
	"github.com/kodasoftware/example-api/internal/server/repositories/repomanager"
)

// UserPatch lists the user fields a caller may change. Nil means unchanged.
type UserPatch struct {
	Email    *string
	Name     *string
	Password *string
}

// UserService handles registration and the caller's own user record.
type UserService struct {
	tx     dbx.Transactor
	repos  repomanager.RepositoryManager
	hasher auth.PasswordHasher
	log    logging.Logger
}

func NewUserService(tx dbx.Transactor, repos repomanager.RepositoryManager, hasher auth.PasswordHasher, log logging.Logger) *UserService {
	return &UserService{tx: tx, repos: repos, hasher: hasher, log: log.With("module", "users")}
}

// Register creates a user with no account. The email must not belong to
// another live user.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	const op = "users.Register"

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, op, err)
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		if err := s.ensureEmailFree(ctx, repo.GetByEmail, email, "", op); err != nil {
			return err
		}

		u, err := repo.Create(ctx, &models.User{Email: email, Password: hash, Name: name})
		if err != nil {
			return s.classifyWrite(op, err)
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// GetMe returns the live user row for id.
func (s *UserService) GetMe(ctx context.Context, id string) (*models.User, error) {
	const op = "users.GetMe"

	u, err := s.repos.Users(s.tx.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, s.classifyLookup(op, err)
	}
	if u.Deleted {
		return nil, common.E(common.KindNoSuchUser, op, "no such user")
	}
	return u, nil
}

// UpdateMe merges patch into the caller's row. A new password is re-hashed.
func (s *UserService) UpdateMe(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	const op = "users.UpdateMe"

	var newHash string
	if patch.Password != nil {
		h, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, common.Wrap(common.KindInternal, op, err)
		}
		newHash = h
	}

	var updated *models.User
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		u, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return s.classifyLookup(op, err)
		}
		if u.Deleted {
			return common.E(common.KindNoSuchUser, op, "no such user")
		}

		if patch.Email != nil && *patch.Email != u.Email {
			if err := s.ensureEmailFree(ctx, repo.GetByEmail, *patch.Email, u.ID, op); err != nil {
				return err
			}
			u.Email = *patch.Email
		}
		if patch.Name != nil {
			u.Name = *patch.Name
		}
		if patch.Password != nil {
			u.Password = newHash
		}

		updated, err = repo.Update(ctx, u)
		if err != nil {
			return s.classifyWrite(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMe soft-deletes the caller. Tokens already issued stay valid until
// they expire, but refresh and login stop working immediately.
func (s *UserService) DeleteMe(ctx context.Context, id string) error {
	const op = "users.DeleteMe"

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		u, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return s.classifyLookup(op, err)
		}
		if u.Deleted {
			return common.E(common.KindNoSuchUser, op, "no such user")
		}

		if _, err := repo.Delete(ctx, u); err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, lookup func(context.Context, string) (*models.User, error),
	email, selfID, op string) error {
	other, err := lookup(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return common.Wrap(common.KindInternal, op, err)
	case !other.Deleted && other.ID != selfID:
		return common.E(common.KindUserExists, op, "user exists")
	}
	return nil
}

func (s *UserService) classifyLookup(op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.E(common.KindNoSuchUser, op, "no such user")
	}
	return common.Wrap(common.KindInternal, op, err)
}

// classifyWrite turns a lost race on the live-email index into UserExists.
func (s *UserService) classifyWrite(op string, err error) error {
	if dbx.IsUniqueViolation(err) {
		return common.E(common.KindUserExists, op, "user exists")
	}
	return common.Wrap(common.KindInternal, op, err)
}
