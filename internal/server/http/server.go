// Package http is the JSON/cookie boundary of the service. It authenticates
// callers, validates request bodies and maps service error kinds to status
// codes; all business rules live in the services package.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/metrics"
	"github.com/kodasoftware/example-api/internal/server/models"
	"github.com/kodasoftware/example-api/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	Verify(accessToken string) (auth.Identity, error)
}

type UserManager interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	GetMe(ctx context.Context, id string) (*models.User, error)
	UpdateMe(ctx context.Context, id string, patch services.UserPatch) (*models.User, error)
	DeleteMe(ctx context.Context, id string) error
}

type AccountManager interface {
	CreateForUser(ctx context.Context, identity auth.Identity, name string) (*models.Account, error)
	GetMine(ctx context.Context, userID string) (*models.Account, error)
	UpdateMine(ctx context.Context, userID string, patch services.AccountPatch) (*models.Account, error)
	DeleteMine(ctx context.Context, userID string) error
}

// Options carries the non-service dependencies of the HTTP server.
type Options struct {
	Address    string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	// Ready backs /healthz; nil means always healthy.
	Ready func(context.Context) error
}

type Server struct {
	opts     Options
	logger   logging.Logger
	auth     Authenticator
	users    UserManager
	accounts AccountManager
	cookies  *CookieSigner
}

func NewServer(opts Options, l logging.Logger, a Authenticator, u UserManager, ac AccountManager, cookies *CookieSigner) *Server {
	return &Server{
		opts:     opts,
		logger:   l.With("module", "http_server"),
		auth:     a,
		users:    u,
		accounts: ac,
		cookies:  cookies,
	}
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.authenticate(s.authorize(h))
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.recoverPanics, s.logRequests)
	if s.opts.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(s.opts.Metrics))
	}

	r.HandleFunc("/auth", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth", s.refresh).Methods(http.MethodGet)

	r.HandleFunc("/users", s.register).Methods(http.MethodPost)
	r.Handle("/users", s.protect(s.getMe)).Methods(http.MethodGet)
	r.Handle("/users", s.protect(s.updateMe)).Methods(http.MethodPatch)
	r.Handle("/users", s.protect(s.deleteMe)).Methods(http.MethodDelete)

	r.Handle("/accounts", s.protect(s.createAccount)).Methods(http.MethodPost)
	r.Handle("/accounts", s.protect(s.getAccount)).Methods(http.MethodGet)
	r.Handle("/accounts", s.protect(s.updateAccount)).Methods(http.MethodPatch)
	r.Handle("/accounts", s.protect(s.deleteAccount)).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.opts.Gatherer)).Methods(http.MethodGet)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
