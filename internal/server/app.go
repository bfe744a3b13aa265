// Package server initializes and runs the access-control server.
// It opens the database, applies migrations, wires services onto the HTTP
// router, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"

	"github.com/crewgate/crewgate/internal/logging"
	"github.com/crewgate/crewgate/internal/server/config"
	"github.com/crewgate/crewgate/internal/server/httpapi"
	"github.com/crewgate/crewgate/internal/server/repositories/repomanager"
	"github.com/crewgate/crewgate/internal/server/services"
	"github.com/crewgate/crewgate/internal/server/token"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	repos  repomanager.RepositoryManager
	router http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	zl, err := logging.NewProductionLogger()
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()

	codec := token.NewCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
	sessions := services.NewSessionService(db, m, codec, cfg)
	users := services.NewUserService(db, m)
	catalog := services.NewCatalogService(db, m)

	router := httpapi.NewRouter(codec,
		httpapi.NewAuthHandler(sessions, zl),
		httpapi.NewUsersHandler(users, zl),
		httpapi.NewServicesHandler(catalog, zl),
	)

	return &App{config: cfg, logger: zl, db: db, repos: m, router: router}, nil
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

// waitForDB pings the database with a bounded backoff so the server survives
// starting before its database in orchestrated deployments.
func (app *App) waitForDB(ctx context.Context) error {
	backoff := retry.WithMaxRetries(5, retry.NewConstant(2*time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Warn(ctx, "database not ready", "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.waitForDB(ctx); err != nil {
		return fmt.Errorf("db connect error: %w", err)
	}

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.router,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "HTTP server listening", "addr", app.config.EndpointAddrHTTP)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown error", "err", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "err", err)
	}

	return nil
}
