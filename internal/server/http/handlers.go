package http

import (
	"net/http"
	"time"

	"github.com/kodasoftware/example-api/internal/common"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/models"
	"github.com/kodasoftware/example-api/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	Expiry      time.Time `json:"expiry"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userPatchRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AccountID *string   `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type accountRequest struct {
	Name *string `json:"name"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AccountID: u.AccountID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Deleted:   a.Deleted,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (s *Server) writeTokens(w http.ResponseWriter, pair auth.TokenPair) {
	s.cookies.Set(w, common.AccessTokenCookie, pair.AccessToken, s.opts.AccessTTL, false)
	s.cookies.Set(w, common.RefreshTokenCookie, pair.RefreshToken, s.opts.RefreshTTL, true)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, Expiry: pair.AccessExpiry})
}

// login handles POST /auth
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, invalid("email and password are required"))
		return
	}

	pair, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeTokens(w, pair)
}

// refresh handles GET /auth. Any failure clears the refresh cookie so the
// client stops presenting a token that can never succeed.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := s.cookies.Get(r, common.RefreshTokenCookie)
	if !ok {
		s.cookies.Clear(w, common.RefreshTokenCookie)
		writeError(w, common.E(common.KindInvalidToken, "http.refresh", "missing refresh token"))
		return
	}

	pair, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		s.cookies.Clear(w, common.RefreshTokenCookie)
		if !common.Is(err, common.KindInvalidToken) {
			s.logger.Error(r.Context(), "refresh failed", "error", err)
		}
		writeError(w, err)
		return
	}

	s.writeTokens(w, pair)
}

// register handles POST /users
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	for _, err := range []error{validateEmail(req.Email), validatePassword(req.Password), validateUserName(req.Name)} {
		if err != nil {
			writeError(w, err)
			return
		}
	}

	u, err := s.users.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// getMe handles GET /users
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	u, err := s.users.GetMe(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// updateMe handles PATCH /users
func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req userPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email != nil {
		if err := validateEmail(*req.Email); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Name != nil {
		if err := validateUserName(*req.Name); err != nil {
			writeError(w, err)
			return
		}
	}

	u, err := s.users.UpdateMe(r.Context(), identity.ID, services.UserPatch{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// deleteMe handles DELETE /users
func (s *Server) deleteMe(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := s.users.DeleteMe(r.Context(), identity.ID); err != nil {
		writeError(w, err)
		return
	}

	s.cookies.Clear(w, common.AccessTokenCookie)
	s.cookies.Clear(w, common.RefreshTokenCookie)
	w.WriteHeader(http.StatusNoContent)
}

// createAccount handles POST /accounts
func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == nil {
		writeError(w, invalid("name is required"))
		return
	}
	if err := validateName(*req.Name); err != nil {
		writeError(w, err)
		return
	}

	a, err := s.accounts.CreateForUser(r.Context(), identity, *req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

// getAccount handles GET /accounts
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	a, err := s.accounts.GetMine(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// updateAccount handles PATCH /accounts
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			writeError(w, err)
			return
		}
	}

	a, err := s.accounts.UpdateMine(r.Context(), identity.ID, services.AccountPatch{Name: req.Name})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// deleteAccount handles DELETE /accounts
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := s.accounts.DeleteMine(r.Context(), identity.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthz handles GET /healthz
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
