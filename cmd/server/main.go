package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/kioskvote/internal/adapters/handler/http"
	"github.com/vncsmyrnk/kioskvote/internal/adapters/lockdown"
	"github.com/vncsmyrnk/kioskvote/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/kioskvote/internal/config"
	"github.com/vncsmyrnk/kioskvote/internal/core/services"
	"github.com/vncsmyrnk/kioskvote/pkg/logger"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer l.Sync()

	if err := run(cfg, l); err != nil {
		l.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqldb.Open(ctx, sqldb.Config{
		Dialect:     sqldb.Dialect(cfg.Database.Driver),
		Path:        cfg.Database.Path,
		URL:         cfg.Database.URL,
		TxTimeout:   cfg.Database.TxTimeout,
		BusyTimeout: cfg.Database.BusyTimeout,
	}, l)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(); err != nil {
			return err
		}
	}

	hasher := services.NewBcryptHasher(cfg.Auth.BcryptCost)
	ledger := services.NewLedgerService(store, hasher, cfg.Database.TxTimeout, l)
	auth, err := services.NewAuthService(ledger, hasher, services.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	}, l)
	if err != nil {
		return err
	}

	lockCtl, err := lockdown.New(cfg.Lockdown, l)
	if err != nil {
		return err
	}

	hub := http.NewNotificationHub(l)
	sessions := services.NewSessionManager(ledger, auth, lockCtl, hub, l)

	handler := http.NewHandler(http.Handlers{
		Auth:          http.NewAuthHandler(auth, l),
		Elections:     http.NewElectionHandler(ledger, sessions, auth, l),
		Candidates:    http.NewCandidateHandler(ledger),
		Sessions:      http.NewSessionHandler(sessions, auth, l),
		Notifications: hub,
	})
	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Release the keyboard before anything else goes away.
		sessions.Shutdown(shutdownCtx)
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
