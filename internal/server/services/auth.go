// Package services contains server-side business logic: credential
// resolution and token lifecycle (AuthService), self-service user management
// (UserService) and the account linkage transaction (AccountService).
package services

import (
	"context"
	"errors"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/metrics"
	"github.com/kodasoftware/example-api/internal/server/repositories/repomanager"
)

// AuthService verifies credentials and mints or refreshes token pairs.
type AuthService struct {
	tx      dbx.Transactor
	repos   repomanager.RepositoryManager
	hasher  auth.PasswordHasher
	tokens  *auth.TokenIssuer
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewAuthService(tx dbx.Transactor, repos repomanager.RepositoryManager, hasher auth.PasswordHasher,
	tokens *auth.TokenIssuer, m *metrics.Metrics, log logging.Logger) *AuthService {
	return &AuthService{
		tx:      tx,
		repos:   repos,
		hasher:  hasher,
		tokens:  tokens,
		metrics: m,
		log:     log.With("module", "auth"),
	}
}

// Resolve maps an email/password pair to an Identity. It only reads.
func (s *AuthService) Resolve(ctx context.Context, email, password string) (auth.Identity, error) {
	const op = "auth.Resolve"

	user, err := s.repos.Users(s.tx.Conn()).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Identity{}, common.E(common.KindNoSuchUser, op, "no such user")
		}
		return auth.Identity{}, common.Wrap(common.KindInternal, op, err)
	}

	if user.Deleted {
		return auth.Identity{}, common.E(common.KindAccountDisabled, op, "account disabled")
	}

	if !s.hasher.Verify(password, user.Password) {
		return auth.Identity{}, common.E(common.KindInvalidCredentials, op, "invalid credentials")
	}

	return auth.Identity{ID: user.ID, Email: user.Email, Permissions: auth.DefaultPermissions()}, nil
}

// Login resolves the credentials and issues a token pair for the identity.
func (s *AuthService) Login(ctx context.Context, email, password string) (pair auth.TokenPair, err error) {
	defer func() { s.metrics.ObserveLogin(err) }()

	identity, err := s.Resolve(ctx, email, password)
	if err != nil {
		s.log.Info(ctx, "login rejected", "reason", common.KindOf(err).String())
		return auth.TokenPair{}, err
	}

	pair, err = s.tokens.Issue(identity)
	if err != nil {
		s.log.Error(ctx, "issue tokens", "user_id", identity.ID, "error", err)
		return auth.TokenPair{}, err
	}

	s.log.Info(ctx, "login", "user_id", identity.ID)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The identity is rebuilt
// from the current user row, so an email change or a deletion takes effect
// on the next refresh. Token and user failures are all KindInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair auth.TokenPair, err error) {
	const op = "auth.Refresh"
	defer func() { s.metrics.ObserveRefresh(err) }()

	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return auth.TokenPair{}, common.Wrap(common.KindInvalidToken, op, err)
	}

	user, err := s.repos.Users(s.tx.Conn()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.TokenPair{}, common.E(common.KindInvalidToken, op, "invalid token")
		}
		return auth.TokenPair{}, common.Wrap(common.KindInternal, op, err)
	}
	if user.Deleted {
		return auth.TokenPair{}, common.E(common.KindInvalidToken, op, "invalid token")
	}

	identity := auth.Identity{ID: user.ID, Email: user.Email, Permissions: auth.DefaultPermissions()}
	pair, err = s.tokens.Issue(identity)
	if err != nil {
		return auth.TokenPair{}, err
	}

	s.log.Debug(ctx, "tokens refreshed", "user_id", user.ID)
	return pair, nil
}

// Verify validates an access token for the transport layers.
func (s *AuthService) Verify(accessToken string) (auth.Identity, error) {
	return s.tokens.Verify(accessToken)
}
