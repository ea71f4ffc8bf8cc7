package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

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

	var (
		electionID int64
		all        bool
	)
	flag.Int64Var(&electionID, "election", 0, "Election to snapshot")
	flag.BoolVar(&all, "all", false, "Snapshot every election")
	flag.StringVar(&cfg.Database.Driver, "driver", cfg.Database.Driver, "Database driver (sqlite or postgres)")
	flag.StringVar(&cfg.Database.Path, "db-path", cfg.Database.Path, "SQLite database file")
	flag.StringVar(&cfg.Database.URL, "db-url", cfg.Database.URL, "Postgres connection string")
	flag.Parse()

	if electionID <= 0 && !all {
		log.Fatal("either -election or -all is required")
	}

	l, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer l.Sync()

	// Use a timeout for the job so a locked database cannot hang it.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := sqldb.Open(ctx, sqldb.Config{
		Dialect:   sqldb.Dialect(cfg.Database.Driver),
		Path:      cfg.Database.Path,
		URL:       cfg.Database.URL,
		TxTimeout: cfg.Database.TxTimeout,
	}, l)
	if err != nil {
		l.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	// Snapshots never hash, the hasher only satisfies the ledger.
	ledger := services.NewLedgerService(store, services.NewBcryptHasher(bcrypt.DefaultCost), cfg.Database.TxTimeout, l)
	results := services.NewResultsService(ledger)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if all {
		snapshots, err := results.SnapshotAll(ctx)
		if err != nil {
			l.Fatal("failed to snapshot elections", zap.Error(err))
		}
		if err := enc.Encode(snapshots); err != nil {
			l.Fatal("failed to write snapshots", zap.Error(err))
		}
		return
	}

	snapshot, err := results.Snapshot(ctx, electionID)
	if err != nil {
		l.Fatal("failed to snapshot election", zap.Int64("election_id", electionID), zap.Error(err))
	}
	if err := enc.Encode(snapshot); err != nil {
		l.Fatal("failed to write snapshot", zap.Error(err))
	}
}
