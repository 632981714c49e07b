// Package app wires the service together and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/shortline-dev/shortline/internal/auth"
	"github.com/shortline-dev/shortline/internal/config"
	dbpostgres "github.com/shortline-dev/shortline/internal/database/postgres"
	"github.com/shortline-dev/shortline/internal/metrics"
	"github.com/shortline-dev/shortline/internal/service"
	"github.com/shortline-dev/shortline/pkg/postgres"
	"golang.org/x/sync/errgroup"

	api "github.com/shortline-dev/shortline/internal/api/http"
)

func passwordVerifier(scheme string) service.PasswordVerifier {
	if scheme == config.PasswordSchemeBcrypt {
		return service.BcryptVerifier{}
	}
	return service.PlaintextVerifier{}
}

// Run starts the service and blocks until ctx is canceled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	metrics.Init()

	urlRepo := dbpostgres.NewURLRepository(db)
	userRepo := dbpostgres.NewUserRepository(db)

	urlSvc := service.NewURLService(
		urlRepo,
		userRepo,
		service.RandomCodeGenerator{},
		passwordVerifier(cfg.PasswordScheme),
		cfg.BaseURL,
		cfg.ShortCodeLength,
	)

	tm := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	logger := httplog.NewLogger("shortline", httplog.Options{
		JSON:    cfg.Env == config.EnvProd,
		Concise: cfg.Env != config.EnvProd,
	})

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, urlSvc, tm),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
