package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/vncsmyrnk/kioskvote/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/kioskvote/internal/config"
	"github.com/vncsmyrnk/kioskvote/pkg/logger"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	flag.StringVar(&cfg.Database.Driver, "driver", cfg.Database.Driver, "Database driver (sqlite or postgres)")
	flag.StringVar(&cfg.Database.Path, "db-path", cfg.Database.Path, "SQLite database file")
	flag.StringVar(&cfg.Database.URL, "db-url", cfg.Database.URL, "Postgres connection string")
	flag.Parse()

	l, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer l.Sync()

	store, err := sqldb.Open(context.Background(), sqldb.Config{
		Dialect:   sqldb.Dialect(cfg.Database.Driver),
		Path:      cfg.Database.Path,
		URL:       cfg.Database.URL,
		TxTimeout: cfg.Database.TxTimeout,
	}, l)
	if err != nil {
		l.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		l.Fatal("migration failed", zap.Error(err))
	}
	l.Info("migrations applied")
}
