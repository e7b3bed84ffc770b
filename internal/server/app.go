// Package server wires configuration, storage, token signing and the two
// transports into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kodasoftware/example-api/internal/dbx"
	"github.com/kodasoftware/example-api/internal/logging"
	"github.com/kodasoftware/example-api/internal/server/auth"
	"github.com/kodasoftware/example-api/internal/server/config"
	"github.com/kodasoftware/example-api/internal/server/metrics"
	"github.com/kodasoftware/example-api/internal/server/repositories/repomanager"
	"github.com/kodasoftware/example-api/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/kodasoftware/example-api/internal/server/grpc"
	hs "github.com/kodasoftware/example-api/internal/server/http"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *hs.Server
	grpcServer *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	priv, pub, err := auth.LoadKeyPair(c.PrivateKeyPath, c.PublicKeyPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("key pair error: %w", err)
	}

	cookies, err := hs.NewCookieSigner(c.CookieKeys, c.SecureCookies)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cookie signer error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "example_api"),
	)
	m := metrics.NewMetrics(registry)

	tx := dbx.NewTransactor(db, nil)
	hasher := auth.NewBcryptHasher(c.BcryptCost)
	tokens := auth.NewTokenIssuer(priv, pub, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)

	as := services.NewAuthService(tx, rm, hasher, tokens, m, logger)
	us := services.NewUserService(tx, rm, hasher, logger)
	acs := services.NewAccountService(tx, rm, m, logger)

	httpServer := hs.NewServer(hs.Options{
		Address:    c.EndpointAddrHTTP,
		AccessTTL:  c.AccessTokenValidityDuration,
		RefreshTTL: c.RefreshTokenValidityDuration,
		Metrics:    m,
		Gatherer:   registry,
		Ready:      db.PingContext,
	}, logger, as, us, acs, cookies)

	grpcServer := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, as)

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		httpServer: httpServer,
		grpcServer: grpcServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, "grpc server", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}
