package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/squares-backend/internal/config"
	"github.com/DoyleJ11/squares-backend/internal/directory"
	"github.com/DoyleJ11/squares-backend/internal/directory/postgres"
	"github.com/DoyleJ11/squares-backend/internal/directory/sqlite"
	"github.com/DoyleJ11/squares-backend/internal/engine"
	"github.com/DoyleJ11/squares-backend/internal/httpapi"
	"github.com/DoyleJ11/squares-backend/internal/lobby"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := newLobby(cfg, store, log)
	defer l.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(l, store, log, httpapi.Options{SubscriberBuffer: cfg.SubscriberBuffer}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.String("directory", cfg.Directory),
		zap.Int("initial_squares", cfg.InitialSquares))
	return serve(ctx, srv, log, cfg.ShutdownTimeout)
}

// newLobby builds the coordinator. It is not tied to the signal context: the
// lobby keeps serving while the HTTP server drains and is stopped afterwards.
func newLobby(cfg config.Config, dir directory.Directory, log *zap.Logger) *lobby.Lobby {
	return lobby.NewLobby(context.Background(), engine.NewState(cfg.InitialSquares), dir, log)
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func openDirectory(cfg config.Config) (directory.Store, error) {
	switch cfg.Directory {
	case config.DirectorySQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DirectoryPostgres:
		return postgres.Open(cfg.DatabaseURL)
	default:
		return directory.NewMemory(), nil
	}
}
