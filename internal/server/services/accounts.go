package services

import (
	"context"
	"errors"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/metrics"
	"github.com/kodasoftware/example-api/internal/server/models"
	"github.com/kodasoftware/example-api/internal/server/repositories/repomanager"
)

// AccountPatch lists the account fields a caller may change.
type AccountPatch struct {
	Name *string
}

// AccountService owns the one-account-per-user linkage.
type AccountService struct {
	tx      dbx.Transactor
	repos   repomanager.RepositoryManager
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewAccountService(tx dbx.Transactor, repos repomanager.RepositoryManager, m *metrics.Metrics, log logging.Logger) *AccountService {
	return &AccountService{tx: tx, repos: repos, metrics: m, log: log.With("module", "accounts")}
}

// CreateForUser creates an account and links the caller to it in one
// transaction.
//
// The user row is locked first, so concurrent calls for the same user are
// serialized and every loser observes the winner's link. A user whose linked
// account has been deleted may create a new one; the new account replaces the
// stale link.
func (s *AccountService) CreateForUser(ctx context.Context, identity auth.Identity, name string) (account *models.Account, err error) {
	const op = "accounts.CreateForUser"
	defer func() { s.metrics.ObserveLinkage(err) }()

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		usersRepo := s.repos.Users(tx)
		accountsRepo := s.repos.Accounts(tx)

		user, err := usersRepo.GetByIDForUpdate(ctx, identity.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.E(common.KindNoSuchUser, op, "no such user")
			}
			return common.Wrap(common.KindInternal, op, err)
		}
		if user.Deleted {
			return common.E(common.KindNoSuchUser, op, "no such user")
		}

		var staleID string
		current, err := accountsRepo.GetByUserID(ctx, user.ID)
		switch {
		case err == nil && !current.Deleted:
			return common.E(common.KindAccountExists, op, "account exists")
		case err == nil:
			staleID = current.ID
		case !errors.Is(err, common.ErrorNotFound):
			return common.Wrap(common.KindInternal, op, err)
		}

		if user.HasAccount() && *user.AccountID != staleID {
			return common.E(common.KindUserAlreadyLinked, op, "user already linked to an account")
		}

		created, err := accountsRepo.Create(ctx, &models.Account{Name: name})
		if err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}

		user.AccountID = &created.ID
		if _, err := usersRepo.Update(ctx, user); err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}
		if err := accountsRepo.Link(ctx, user.ID, created.ID); err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}

		account = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "account linked", "user_id", identity.ID, "account_id", account.ID)
	return account, nil
}

// GetMine returns the caller's linked account, including a deleted one.
func (s *AccountService) GetMine(ctx context.Context, userID string) (*models.Account, error) {
	const op = "accounts.GetMine"

	a, err := s.repos.Accounts(s.tx.Conn()).GetByUserID(ctx, userID)
	if err != nil {
		return nil, classifyAccountLookup(op, err)
	}
	return a, nil
}

// UpdateMine merges patch into the caller's live account.
func (s *AccountService) UpdateMine(ctx context.Context, userID string, patch AccountPatch) (*models.Account, error) {
	const op = "accounts.UpdateMine"

	var updated *models.Account
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		a, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return classifyAccountLookup(op, err)
		}
		if a.Deleted {
			return common.E(common.KindNoSuchAccount, op, "no such account")
		}

		if patch.Name != nil {
			a.Name = *patch.Name
		}

		updated, err = repo.Update(ctx, a)
		if err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMine flags the caller's account as deleted. The linkage row and the
// user's account_id are left in place; they are what lets CreateForUser
// recognise the account as stale.
func (s *AccountService) DeleteMine(ctx context.Context, userID string) error {
	const op = "accounts.DeleteMine"

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		a, err := repo.GetByUserID(ctx, userID)
		if err != nil {
			return classifyAccountLookup(op, err)
		}
		if _, err := repo.Delete(ctx, a); err != nil {
			return common.Wrap(common.KindInternal, op, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "account deleted", "user_id", userID)
	return nil
}

func classifyAccountLookup(op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.E(common.KindNoSuchAccount, op, "no such account")
	}
	return common.Wrap(common.KindInternal, op, err)
}
